// Package nodelink renders record documents as node-link diagrams.
//
// # Overview
//
// Each record becomes a box labelled with its node name and type. Solid
// arrows run from a record to the records whose creation data names it, so
// the diagram reads top to bottom in creation order. With
// [Options.Connections] set, recorded attribute connections are drawn as
// dashed arrows labelled with the attributes they join.
//
// # Usage
//
//	g := nodelink.Graph(doc, nodelink.Options{Connections: true})
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
