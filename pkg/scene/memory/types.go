package memory

import (
	"maps"
	"slices"

	"github.com/matzehuels/rigstash/pkg/scene"
)

// typeInfo describes a node type the scene can create.
type typeInfo struct {
	caps  scene.Capability
	attrs map[string]any
}

const (
	capDep      = scene.CapDependency
	capDAG      = scene.CapDependency | scene.CapDAG
	capXform    = capDAG | scene.CapTransform
	capShape    = capDAG | scene.CapShape
	capDeformer = scene.CapDependency | scene.CapDeformer
)

// AnimCurveTypes lists the animation curve type tags the scene knows.
var AnimCurveTypes = []string{"animCurveTL", "animCurveTA", "animCurveTU", "animCurveUL", "animCurveUA", "animCurveUU"}

func builtinTypes() map[string]typeInfo {
	transform := map[string]any{
		"translate":  scene.Vec3{},
		"rotate":     scene.Vec3{},
		"scale":      scene.Vec3{1, 1, 1},
		"visibility": true,
	}
	envelope := map[string]any{"envelope": 1.0}
	curve := map[string]any{
		"keyTimes":        []float64(nil),
		"keyValues":       []float64(nil),
		"inTangentTypes":  []string(nil),
		"outTangentTypes": []string(nil),
		"inAngles":        []float64(nil),
		"outAngles":       []float64(nil),
		"preInfinity":     0,
		"postInfinity":    0,
		"output":          0.0,
	}

	types := map[string]typeInfo{
		"transform": {capXform, transform},
		"joint": {capXform, with(transform, map[string]any{
			"radius":      1.0,
			"jointOrient": scene.Vec3{},
		})},
		"pointConstraint": {capXform, with(transform, map[string]any{
			"offset":       scene.Vec3{},
			"targetWeight": 1.0,
		})},
		"mesh": {capShape, map[string]any{"intermediateObject": false}},
		"nurbsCurve": {capShape, map[string]any{
			"intermediateObject": false,
			"degree":             3,
			"form":               CurveOpen,
			"knots":              []float64(nil),
		}},
		"skinCluster": {capDeformer | scene.CapInfluenced, with(envelope, map[string]any{
			"skinningMethod":        0,
			"bindMethod":            0,
			"dropoffRate":           4.0,
			"normalizeWeights":      1,
			"maxInfluences":         4,
			"maintainMaxInfluences": false,
		})},
		"blendShape": {capDeformer, with(envelope, map[string]any{
			"inputTarget": []scene.BlendTarget(nil),
			"origin":      1,
		})},
		"cluster":   {capDeformer, with(envelope, map[string]any{"relative": false})},
		"lattice":   {capDeformer, with(envelope, map[string]any{"divisions": scene.Vec3{2, 5, 2}})},
		"wrap":      {capDeformer, with(envelope, map[string]any{"maxDistance": 1.0, "falloffMode": 0})},
		"deltaMush": {capDeformer, with(envelope, map[string]any{"smoothingIterations": 10, "smoothingStep": 0.5})},
		"objectSet": {capDep, map[string]any{"members": []string(nil), "annotation": ""}},
		"multiplyDivide": {capDep, map[string]any{
			"input1":    scene.Vec3{},
			"input2":    scene.Vec3{1, 1, 1},
			"operation": 1,
			"output":    scene.Vec3{},
		}},
		"addDoubleLinear":  {capDep, map[string]any{"input1": 0.0, "input2": 0.0, "output": 0.0}},
		"plusMinusAverage": {capDep, map[string]any{"operation": 1, "output1D": 0.0}},
		"network":          {capDep, map[string]any{"notes": ""}},
	}
	for _, tag := range AnimCurveTypes {
		types[tag] = typeInfo{capDep, curve}
	}
	return types
}

func with(base, extra map[string]any) map[string]any {
	out := maps.Clone(base)
	maps.Copy(out, extra)
	return out
}

func cloneAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t)
	case []float64:
		return slices.Clone(t)
	case []int:
		return slices.Clone(t)
	case []scene.BlendTarget:
		return cloneTargets(t)
	}
	return v
}

func cloneTargets(ts []scene.BlendTarget) []scene.BlendTarget {
	if ts == nil {
		return nil
	}
	out := make([]scene.BlendTarget, len(ts))
	for i, t := range ts {
		out[i] = scene.BlendTarget{Name: t.Name, Index: t.Index}
		for _, it := range t.Items {
			out[i].Items = append(out[i].Items, scene.TargetItem{
				Index:      it.Index,
				Components: slices.Clone(it.Components),
				Points:     slices.Clone(it.Points),
			})
		}
	}
	return out
}
