package engine

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/rigstash/pkg/observability"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/scene"
	"github.com/matzehuels/rigstash/pkg/scene/memory"
	"github.com/matzehuels/rigstash/pkg/scene/scenetest"
)

type recordingHooks struct {
	observability.NoopEngineHooks
	exports []int
	loads   []int
	errs    []error
}

func (h *recordingHooks) OnExport(_ context.Context, nodes int, _ time.Duration, err error) {
	h.exports = append(h.exports, nodes)
	h.errs = append(h.errs, err)
}

func (h *recordingHooks) OnLoad(_ context.Context, created, _ int, _ time.Duration, err error) {
	h.loads = append(h.loads, created)
	h.errs = append(h.errs, err)
}

func useHooks(t *testing.T) *recordingHooks {
	t.Helper()
	h := &recordingHooks{}
	observability.SetEngineHooks(h)
	t.Cleanup(observability.Reset)
	return h
}

func TestSingleRecordHooks(t *testing.T) {
	h := useHooks(t)
	ctx := context.Background()
	r := scenetest.NewRig(t)

	rec := scenetest.Must(newEngine(r.Scene).Export(ctx, r.Root, ExportAll))(t)
	if _, _, err := newEngine(memory.New()).Load(ctx, rec, LoadOptions{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(h.exports, []int{1}) {
		t.Errorf("export hook calls = %v, want [1]", h.exports)
	}
	if !slices.Equal(h.loads, []int{1}) {
		t.Errorf("load hook calls = %v, want [1]", h.loads)
	}

	// ExportNames reports once for the whole document.
	h.exports = nil
	scenetest.Must(newEngine(r.Scene).ExportNames(ctx, ExportAll, rigNodes...))(t)
	if !slices.Equal(h.exports, []int{len(rigNodes)}) {
		t.Errorf("export hook calls = %v, want [%d]", h.exports, len(rigNodes))
	}
}

func TestSingleRecordCanceled(t *testing.T) {
	h := useHooks(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := scenetest.NewRig(t)
	rec := &record.Node{Type: "transform", Name: "grp", Creation: record.NewCreation()}

	if _, err := newEngine(r.Scene).Export(ctx, r.Root, ExportAll); err != context.Canceled {
		t.Errorf("Export error = %v, want context.Canceled", err)
	}
	s := memory.New()
	if _, _, err := newEngine(s).Load(ctx, rec, LoadOptions{}); err != context.Canceled {
		t.Errorf("Load error = %v, want context.Canceled", err)
	}
	if s.Exists("grp") {
		t.Error("canceled load created a node")
	}
	if len(h.errs) != 2 || h.errs[0] != context.Canceled || h.errs[1] != context.Canceled {
		t.Errorf("hook errors = %v", h.errs)
	}
}

func TestLoadReportNodesInLoadOrder(t *testing.T) {
	ctx := context.Background()
	r := scenetest.NewRig(t)
	doc := scenetest.Must(newEngine(r.Scene).ExportNames(ctx, ExportAll, rigNodes...))(t)

	dst := memory.New()
	scenetest.Must(dst.Create("joint", scene.Args{Name: "tip_jnt"}))(t)
	report := scenetest.Must(newEngine(dst).LoadDocument(ctx, doc, LoadOptions{}))(t)

	var want []string
	for _, rec := range doc.Nodes {
		want = append(want, rec.Name)
	}
	if got := report.Nodes(); !slices.Equal(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if !slices.Equal(report.Reused, []string{"tip_jnt"}) {
		t.Errorf("reused = %v, want [tip_jnt]", report.Reused)
	}
}
