// Package nutrition looks up per-ingredient nutrition facts and aggregates
// them over a detection result set.
package nutrition

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/menta2k/nutrivision/pkg/types"
)

// UnavailableBenefits is the benefits text attached to unmatched ingredients
const UnavailableBenefits = "Información nutricional no disponible"

// Entry is one ingredient row of a nutrition table (values per 100g)
type Entry struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	VitaminC float64 `json:"vitamin_c"`
	Benefits string  `json:"benefits"`
}

// Table is an immutable, insertion-ordered nutrition table. Order matters:
// the loose match in Lookup returns the first entry that matches.
type Table struct {
	entries []Entry
	index   map[string]int
}

// NewTable builds a table from entries, keeping their order. Names are
// normalized; later duplicates are ignored.
func NewTable(entries []Entry) *Table {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		e.Name = normalize(e.Name)
		if e.Name == "" {
			continue
		}
		if _, dup := t.index[e.Name]; dup {
			continue
		}
		t.index[e.Name] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

// LoadTable reads a JSON array of entries from a file
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read nutrition table: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse nutrition table: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("nutrition table %s is empty", path)
	}
	return NewTable(entries), nil
}

// Len returns the number of ingredients in the table
func (t *Table) Len() int {
	return len(t.entries)
}

// Names returns ingredient names in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Lookup returns nutrition facts for label: exact match first, then the
// first entry (in table order) whose name contains the label or is
// contained in it, else Unavailable.
func (t *Table) Lookup(label string) types.NutritionFacts {
	key := normalize(label)
	if key == "" {
		return Unavailable()
	}

	if i, ok := t.index[key]; ok {
		return t.entries[i].facts()
	}

	for _, e := range t.entries {
		if strings.Contains(key, e.Name) || strings.Contains(e.Name, key) {
			return e.facts()
		}
	}

	return Unavailable()
}

// Unavailable returns the sentinel facts for ingredients with no match
func Unavailable() types.NutritionFacts {
	return types.NutritionFacts{Benefits: UnavailableBenefits}
}

// Summarize sums calories, protein, carbs and fat over detections with
// available nutrition. The count includes every detection.
func Summarize(detections []types.Detection) types.NutritionalSummary {
	var s types.NutritionalSummary
	for _, d := range detections {
		if !d.Nutrition.Available {
			continue
		}
		s.TotalCalories += d.Nutrition.Calories
		s.TotalProtein += d.Nutrition.Protein
		s.TotalCarbs += d.Nutrition.Carbs
		s.TotalFat += d.Nutrition.Fat
	}

	s.TotalCalories = Round2(s.TotalCalories)
	s.TotalProtein = Round2(s.TotalProtein)
	s.TotalCarbs = Round2(s.TotalCarbs)
	s.TotalFat = Round2(s.TotalFat)
	s.IngredientsCount = len(detections)
	return s
}

// Round2 rounds v to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (e Entry) facts() types.NutritionFacts {
	return types.NutritionFacts{
		Calories:  Round2(e.Calories),
		Protein:   Round2(e.Protein),
		Carbs:     Round2(e.Carbs),
		Fat:       Round2(e.Fat),
		Fiber:     Round2(e.Fiber),
		VitaminC:  Round2(e.VitaminC),
		Benefits:  e.Benefits,
		Available: true,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
