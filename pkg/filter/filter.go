// Package filter decides which parsed detections are admissible: food
// labels only, physically possible boxes, and no duplicates of boxes that
// were already accepted.
package filter

import (
	"strings"

	"github.com/menta2k/nutrivision/pkg/geometry"
	"github.com/menta2k/nutrivision/pkg/types"
)

// DefaultOverlapThreshold is the IoU above which a candidate is a duplicate
const DefaultOverlapThreshold = 0.3

// defaultNonFood lists tableware, furniture and body parts in Spanish and English
var defaultNonFood = []string{
	"plato", "plate", "dish", "mesa", "table", "cubierto", "fork", "knife", "spoon",
	"tenedor", "cuchillo", "cuchara", "vaso", "glass", "cup", "taza", "bowl", "bol",
	"servilleta", "napkin", "mantel", "tablecloth", "mano", "hand", "dedo", "finger",
}

// Denylist is a set of normalized labels that are never food
type Denylist struct {
	items map[string]struct{}
}

// NewDenylist returns the default non-food list extended with extra terms
func NewDenylist(extra ...string) *Denylist {
	d := &Denylist{items: make(map[string]struct{}, len(defaultNonFood)+len(extra))}
	for _, item := range defaultNonFood {
		d.items[item] = struct{}{}
	}
	for _, item := range extra {
		if item = Normalize(item); item != "" {
			d.items[item] = struct{}{}
		}
	}
	return d
}

// Default is the denylist used when none is configured
var Default = NewDenylist()

// IsFood reports whether label names a food item. Matching is on the whole
// normalized label, so "plato" is rejected but "platano" is not.
func (d *Denylist) IsFood(label string) bool {
	label = Normalize(label)
	if label == "" {
		return false
	}
	_, denied := d.items[label]
	return !denied
}

// Len returns the number of denied labels
func (d *Denylist) Len() int {
	return len(d.items)
}

// IsFood checks label against the default denylist
func IsFood(label string) bool {
	return Default.IsFood(label)
}

// Normalize trims and lowercases a label
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// IsPhysical reports whether the raw coordinates describe a box with
// positive extent before any transform is applied
func IsPhysical(raw types.RawDetection) bool {
	return raw.YMin < raw.YMax && raw.XMin < raw.XMax
}

// Overlaps reports whether candidate has IoU above threshold with any accepted box
func Overlaps(candidate types.PixelBox, accepted []types.PixelBox, threshold float64) bool {
	for _, box := range accepted {
		if geometry.IoU(candidate, box) > threshold {
			return true
		}
	}
	return false
}
