package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/rigstash/pkg/record"
)

func testDoc() *record.Document {
	tip := &record.Node{Type: "joint", Name: "tip_jnt", Creation: record.NewCreation().Set("parent", "root_jnt")}
	tip.Connections = []record.Connection{{SrcNode: "scale_md", SrcAttr: "output", DstNode: "tip_jnt", DstAttr: "scale"}}
	skin := &record.Node{Type: "skinCluster", Name: "body_skin", Creation: record.NewCreation().Append("root_jnt", "tip_jnt")}
	skin.Influences = &record.InfluenceList{Names: []string{"root_jnt", "tip_jnt"}, Indices: []int{0, 1}}
	return &record.Document{Nodes: []*record.Node{
		{Type: "joint", Name: "root_jnt", Creation: record.NewCreation()},
		tip,
		skin,
		{Type: "multiplyDivide", Name: "scale_md"},
	}}
}

func TestGraph(t *testing.T) {
	g := Graph(testDoc(), Options{Connections: true})

	rows := map[string]int{}
	for _, n := range g.Nodes() {
		rows[n.ID] = n.Row
	}
	if rows["root_jnt"] != 0 || rows["tip_jnt"] != 1 || rows["body_skin"] != 2 {
		t.Errorf("rows = %v", rows)
	}

	kinds := map[string]int{}
	for _, e := range g.Edges() {
		kinds[e.Meta["kind"].(string)]++
	}
	if kinds[KindCreation] != 3 || kinds[KindConnection] != 1 {
		t.Errorf("edge kinds = %v", kinds)
	}

	if n, _ := g.Node("body_skin"); n.Meta["influences"] != 2 {
		t.Errorf("skin meta = %v", n.Meta)
	}
}

func TestToDOT(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		contains []string
		absent   []string
	}{
		{
			name: "Plain",
			opts: Options{},
			contains: []string{
				`"root_jnt" -> "tip_jnt";`,
				`label="body_skin\n(skinCluster)"`,
				`"scale_md" [label="scale_md\n(multiplyDivide)", style="rounded,filled,dashed"`,
			},
			absent: []string{"style=dashed", "row: "},
		},
		{
			name: "DetailedWithConnections",
			opts: Options{Detailed: true, Connections: true},
			contains: []string{
				`"scale_md" -> "tip_jnt" [style=dashed`,
				`label="output → scale"`,
				`row: 2`,
				`rank=same`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(Graph(testDoc(), tt.opts), tt.opts)
			for _, s := range tt.contains {
				if !strings.Contains(dot, s) {
					t.Errorf("DOT missing %q:\n%s", s, dot)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(dot, s) {
					t.Errorf("DOT should not contain %q:\n%s", s, dot)
				}
			}
		})
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("without viewBox = %s", got)
	}
}
