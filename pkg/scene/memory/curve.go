package memory

import (
	"slices"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// Curve forms, as stored in the "form" attribute of a nurbsCurve.
const (
	CurveOpen     = 0
	CurveClosed   = 1
	CurvePeriodic = 2
)

// curveAttrs are the attributes that describe curve geometry besides its
// CVs. They follow the CVs onto the intermediate sibling.
var curveAttrs = []string{"degree", "form", "knots"}

// initCurve sets up a NURBS curve from "cvs" and optional "degree" (default
// 3), "form" and "knots". Missing knots are generated uniformly: clamped
// for open and closed curves, unclamped for periodic ones. A periodic
// curve repeats its first degree CVs at the end.
func initCurve(n *node, args scene.Args) error {
	cvs, ok := scene.AsVec3s(args.Named["cvs"])
	if !ok || len(cvs) == 0 {
		return errors.New(errors.ErrCodeCreationFailed, "create %q: cvs is not a point list", n.name)
	}
	degree := 3
	if v, set := args.Named["degree"]; set {
		if degree, ok = scene.AsInt(v); !ok || degree < 1 || degree > 7 {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: degree %v outside [1, 7]", n.name, v)
		}
	}
	form := CurveOpen
	if v, set := args.Named["form"]; set {
		if form, ok = scene.AsInt(v); !ok || form < CurveOpen || form > CurvePeriodic {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: unknown curve form %v", n.name, v)
		}
	}
	if err := checkCVs(cvs, degree, form); err != nil {
		return errors.Wrap(errors.ErrCodeCreationFailed, err, "create %q", n.name)
	}

	var knots []float64
	if v, set := args.Named["knots"]; set && v != nil {
		if knots, ok = scene.AsFloats(v); !ok {
			return errors.New(errors.ErrCodeCreationFailed, "create %q: knots is not a number list", n.name)
		}
		if err := checkKnots(knots, len(cvs), degree); err != nil {
			return errors.Wrap(errors.ErrCodeCreationFailed, err, "create %q", n.name)
		}
	} else if form == CurvePeriodic {
		knots = periodicKnots(len(cvs)-degree, degree)
	} else {
		knots = clampedKnots(len(cvs), degree)
	}

	n.points = cvs
	n.attrs["degree"] = degree
	n.attrs["form"] = form
	n.attrs["knots"] = knots
	if b, _ := scene.AsBool(args.Named["intermediate"]); b {
		n.attrs["intermediateObject"] = true
	}
	return nil
}

func checkCVs(cvs []scene.Vec3, degree, form int) error {
	if len(cvs) <= degree {
		return errors.New(errors.ErrCodeInvalidInput, "degree %d needs more than %d cvs, got %d", degree, degree, len(cvs))
	}
	if form != CurvePeriodic {
		return nil
	}
	if len(cvs) < 2*degree {
		return errors.New(errors.ErrCodeInvalidInput, "periodic degree %d curve needs at least %d cvs, got %d", degree, 2*degree, len(cvs))
	}
	tail := cvs[len(cvs)-degree:]
	for i := range degree {
		if !cvs[i].ApproxEqualThreshold(tail[i], 1e-9) {
			return errors.New(errors.ErrCodeInvalidInput, "periodic curve: cv %d does not repeat cv %d", len(cvs)-degree+i, i)
		}
	}
	return nil
}

// checkKnots enforces the knot count of a curve (cvs + degree - 1) and a
// non-decreasing knot vector.
func checkKnots(knots []float64, numCVs, degree int) error {
	if want := numCVs + degree - 1; len(knots) != want {
		return errors.New(errors.ErrCodeInvalidInput, "%d cvs of degree %d need %d knots, got %d", numCVs, degree, want, len(knots))
	}
	if !slices.IsSorted(knots) {
		return errors.New(errors.ErrCodeInvalidInput, "knots must not decrease")
	}
	return nil
}

// clampedKnots returns 0 and the last span repeated degree times at the
// ends, with unit spacing between.
func clampedKnots(numCVs, degree int) []float64 {
	spans := numCVs - degree
	knots := make([]float64, 0, numCVs+degree-1)
	for range degree - 1 {
		knots = append(knots, 0)
	}
	for i := range spans + 1 {
		knots = append(knots, float64(i))
	}
	for range degree - 1 {
		knots = append(knots, float64(spans))
	}
	return knots
}

// periodicKnots returns unit-spaced knots running degree-1 past both ends
// of the spans.
func periodicKnots(spans, degree int) []float64 {
	knots := make([]float64, 0, spans+2*degree-1)
	for i := range degree - 1 {
		knots = append(knots, float64(i-degree+1))
	}
	for i := range spans + 1 {
		knots = append(knots, float64(i))
	}
	for i := range degree - 1 {
		knots = append(knots, float64(spans+1+i))
	}
	return knots
}
