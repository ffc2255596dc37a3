package nodes

import (
	"math"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/scene"
)

// PruneResult summarizes a PruneWeights call.
type PruneResult struct {
	// Zeroed counts weights below the tolerance that were removed.
	Zeroed int
	// Normalized counts components whose weights were rescaled.
	Normalized int
	// Removed lists influences left without weight that were removed.
	Removed []string
}

// PruneWeights removes the weights of skin below tol, rescales every
// touched component so its weights sum to 1 and removes influences that no
// longer carry weight. The last influence is never removed.
func PruneWeights(s scene.Scene, skin scene.Node, tol float64) (*PruneResult, error) {
	if tol < 0 || tol >= 1 || math.IsNaN(tol) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "prune tolerance %v is outside [0, 1)", tol)
	}
	infs, err := s.ListInfluences(skin)
	if err != nil {
		return nil, err
	}
	count, err := s.ComponentCount(skin)
	if err != nil {
		return nil, err
	}

	res := &PruneResult{}
	used := make(map[int]bool, len(infs))
	row := make([]float64, len(infs))
	for c := range count {
		var (
			sum    float64
			zeroed bool
		)
		for j, inf := range infs {
			w, err := s.Weight(skin, c, inf.Index)
			if err != nil {
				return nil, err
			}
			if w > 0 && w < tol {
				if err := s.SetWeight(skin, c, inf.Index, 0); err != nil {
					return nil, err
				}
				res.Zeroed++
				zeroed = true
				w = 0
			}
			row[j] = w
			sum += w
		}
		if zeroed && sum > 0 {
			for j, inf := range infs {
				if row[j] == 0 {
					continue
				}
				if err := s.SetWeight(skin, c, inf.Index, row[j]/sum); err != nil {
					return nil, err
				}
			}
			res.Normalized++
		}
		for j, inf := range infs {
			if row[j] > 0 {
				used[inf.Index] = true
			}
		}
	}

	remaining := len(infs)
	for _, inf := range infs {
		if used[inf.Index] || remaining == 1 {
			continue
		}
		obj, err := s.Lookup(inf.Name)
		if err != nil {
			return nil, err
		}
		if err := s.RemoveInfluence(skin, obj); err != nil {
			return nil, err
		}
		res.Removed = append(res.Removed, inf.Name)
		remaining--
	}
	return res, nil
}
