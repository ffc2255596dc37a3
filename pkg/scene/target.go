package scene

import "strconv"

// FullWeightItem is the item index of a blend-shape target's full-weight
// shape. In-between shapes use indices from 5000 up to 6000.
const FullWeightItem = 6000

// BlendTarget is one blend-shape target. Its weight is the blend shape's
// "weight[Index]" attribute so that it can be driven by connections.
type BlendTarget struct {
	Name  string       `json:"name"`
	Index int          `json:"index"`
	Items []TargetItem `json:"items,omitempty"`
}

// TargetItem is the sparse delta set of one in-between of a target.
// Points are offsets from the base shape, parallel to Components.
type TargetItem struct {
	Index      int    `json:"index"`
	Components []int  `json:"components"`
	Points     []Vec3 `json:"points"`
}

// Item returns the item with the given index, or nil.
func (t *BlendTarget) Item(index int) *TargetItem {
	for i := range t.Items {
		if t.Items[i].Index == index {
			return &t.Items[i]
		}
	}
	return nil
}

// WeightAttr returns the blend-shape attribute holding the weight of the
// target with the given index.
func WeightAttr(index int) string {
	return "weight[" + strconv.Itoa(index) + "]"
}
