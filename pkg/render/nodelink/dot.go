package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/rigstash/pkg/dag"
	"github.com/matzehuels/rigstash/pkg/dag/transform"
	"github.com/matzehuels/rigstash/pkg/engine"
	"github.com/matzehuels/rigstash/pkg/record"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes row numbers and record metadata in node labels.
	// When false, only the node name and type are shown.
	Detailed bool
	// Connections adds recorded attribute connections to the graph.
	Connections bool
}

// Edge kinds stored under the "kind" edge metadata key.
const (
	KindCreation   = "creation"
	KindConnection = "connection"
)

// Graph builds the diagram graph of doc. Rows are assigned from creation
// dependencies only.
func Graph(doc *record.Document, opts Options) *dag.DAG {
	g := engine.DependencyGraph(doc)
	transform.LayerOrder(g)
	for _, e := range g.Edges() {
		e.Meta["kind"] = KindCreation
	}

	for _, rec := range doc.Nodes {
		n, _ := g.Node(rec.Name)
		if rec.Creation == nil {
			n.Meta["creation"] = false
		}
		if names := rec.AttrNames(); len(names) > 0 {
			n.Meta["attributes"] = len(names)
		}
		if rec.Influences != nil {
			n.Meta["influences"] = rec.Influences.Len()
		}
		if len(rec.Connections) > 0 {
			n.Meta["connections"] = len(rec.Connections)
		}
	}

	if !opts.Connections {
		return g
	}
	for _, rec := range doc.Nodes {
		for _, c := range rec.Connections {
			if _, ok := g.Node(c.SrcNode); !ok {
				continue
			}
			_ = g.AddEdge(dag.Edge{
				From: c.SrcNode,
				To:   c.DstNode,
				Meta: dag.Metadata{"kind": KindConnection, "label": c.SrcAttr + " → " + c.DstAttr},
			})
		}
	}
	return g
}

// ToDOT converts a diagram graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Nodes of one row share a rank. Records without creation data are drawn
// with dashed outlines and grey fill.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	rows := map[int][]string{}
	for _, n := range g.Nodes() {
		label := fmtLabel(*n, opts.Detailed)
		attrs := fmtAttrs(*n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
		rows[n.Row] = append(rows[n.Row], n.ID)
	}

	buf.WriteString("\n")
	for _, row := range slices.Sorted(maps.Keys(rows)) {
		ids := rows[row]
		if len(ids) < 2 {
			continue
		}
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = strconv.Quote(id)
		}
		fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(quoted, "; "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Meta["kind"] == KindConnection {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=gray40, fontsize=10, label=%q, constraint=false];\n",
				e.From, e.To, e.Meta["label"])
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n dag.Node, detailed bool) string {
	label := n.ID
	if t, ok := n.Meta["type"].(string); ok {
		label += "\n(" + t + ")"
	}
	if !detailed {
		return label
	}

	parts := []string{fmt.Sprintf("row: %d", n.Row)}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		if k == "type" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// fillColors maps record types to node fill colors. Types not listed are
// white.
var fillColors = map[string]string{
	"joint":       "#dbeafe",
	"transform":   "#e0f2fe",
	"mesh":        "#dcfce7",
	"skinCluster": "#fef3c7",
	"blendShape":  "#fce7f3",
	"cluster":     "#ede9fe",
	"objectSet":   "#f1f5f9",
}

func fmtAttrs(n dag.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if c, ok := n.Meta["creation"].(bool); ok && !c {
		return append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	if t, ok := n.Meta["type"].(string); ok {
		if color, ok := fillColors[t]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", color))
		} else if strings.HasPrefix(t, "animCurve") {
			attrs = append(attrs, "fillcolor=\"#ffedd5\"")
		}
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
