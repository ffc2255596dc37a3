package prom

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/rigstash/pkg/observability"
)

func TestEngineMetrics(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	m.OnExport(ctx, 4, time.Millisecond, nil)
	m.OnLoad(ctx, 3, 2, time.Millisecond, nil)
	m.OnLoad(ctx, 0, 0, time.Millisecond, errors.New("boom"))
	m.OnMerge(ctx, "body_skin", 10, 2, time.Millisecond, nil)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"exports", testutil.ToFloat64(m.operations.WithLabelValues("export")), 1},
		{"loads", testutil.ToFloat64(m.operations.WithLabelValues("load")), 2},
		{"load failures", testutil.ToFloat64(m.failures.WithLabelValues("load")), 1},
		{"exported nodes", testutil.ToFloat64(m.nodes.WithLabelValues("export")), 4},
		{"warnings", testutil.ToFloat64(m.warnings), 2},
		{"written", testutil.ToFloat64(m.weights.WithLabelValues("written")), 10},
		{"skipped", testutil.ToFloat64(m.weights.WithLabelValues("skipped")), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestStoreMetrics(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	m.OnGet(ctx, "file", true)
	m.OnGet(ctx, "file", false)
	m.OnGet(ctx, "file", false)
	m.OnPut(ctx, "redis", 512)

	if got := testutil.ToFloat64(m.storeGets.WithLabelValues("file", "miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.storeBytes.WithLabelValues("redis")); got != 512 {
		t.Errorf("bytes = %v, want 512", got)
	}
}

func TestInstallAndHandler(t *testing.T) {
	defer observability.Reset()
	m := New(prometheus.NewRegistry())
	m.Install()

	observability.HTTP().OnResponse(context.Background(), "GET", "/api/v1/documents", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `rigstash_http_responses_total{method="GET",route="/api/v1/documents",status="200"} 1`) {
		t.Errorf("metrics output missing response counter:\n%s", rec.Body.String())
	}
}
