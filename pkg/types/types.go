package types

import (
	"encoding/json"
	"fmt"
)

// RawDetection is an unvalidated detection extracted from model text.
// Coordinates are in the model's 0-1000 space, ordered ymin, xmin, ymax, xmax.
type RawDetection struct {
	YMin  float64
	XMin  float64
	YMax  float64
	XMax  float64
	Label string
}

// PixelBox represents a bounding box in integer pixel coordinates
type PixelBox struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Width returns the horizontal extent of the box
func (b PixelBox) Width() int {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box
func (b PixelBox) Height() int {
	return b.Y2 - b.Y1
}

// MarshalJSON encodes the box as [x1, y1, x2, y2]
func (b PixelBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a box from [x1, y1, x2, y2]
func (b *PixelBox) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("pixel box: %w", err)
	}
	b.X1, b.Y1, b.X2, b.Y2 = v[0], v[1], v[2], v[3]
	return nil
}

// Pass identifies which model prompt produced a detection
type Pass int

const (
	PassPrimary Pass = iota
	PassAlternative
)

func (p Pass) String() string {
	if p == PassAlternative {
		return "alternative"
	}
	return "primary"
}

// Detection is an accepted, nutrition-enriched ingredient
type Detection struct {
	ID            int            `json:"id"`
	Label         string         `json:"label"`
	Confidence    float64        `json:"confidence"`
	Box           PixelBox       `json:"bbox"`
	NormalizedBox [4]int         `json:"normalized_bbox"` // ymin, xmin, ymax, xmax
	Area          int            `json:"area"`
	Nutrition     NutritionFacts `json:"nutrition"`
	Pass          Pass           `json:"-"`
}

// NotAvailable is written in place of numeric nutrition values with no match
const NotAvailable = "N/A"

// NutritionFacts holds nutrition values per 100g of an ingredient
type NutritionFacts struct {
	Calories  float64
	Protein   float64
	Carbs     float64
	Fat       float64
	Fiber     float64
	VitaminC  float64
	Benefits  string
	Available bool
}

type nutritionWire struct {
	Calories any    `json:"calories"`
	Protein  any    `json:"protein"`
	Carbs    any    `json:"carbs"`
	Fat      any    `json:"fat"`
	Fiber    any    `json:"fiber"`
	VitaminC any    `json:"vitamin_c"`
	Benefits string `json:"benefits"`
}

// MarshalJSON writes "N/A" for every numeric field of unavailable facts
func (n NutritionFacts) MarshalJSON() ([]byte, error) {
	if !n.Available {
		return json.Marshal(nutritionWire{
			Calories: NotAvailable,
			Protein:  NotAvailable,
			Carbs:    NotAvailable,
			Fat:      NotAvailable,
			Fiber:    NotAvailable,
			VitaminC: NotAvailable,
			Benefits: n.Benefits,
		})
	}
	return json.Marshal(nutritionWire{
		Calories: n.Calories,
		Protein:  n.Protein,
		Carbs:    n.Carbs,
		Fat:      n.Fat,
		Fiber:    n.Fiber,
		VitaminC: n.VitaminC,
		Benefits: n.Benefits,
	})
}

// NutritionalSummary aggregates nutrition over a result set
type NutritionalSummary struct {
	TotalCalories    float64 `json:"total_calories"`
	TotalProtein     float64 `json:"total_protein"`
	TotalCarbs       float64 `json:"total_carbs"`
	TotalFat         float64 `json:"total_fat"`
	IngredientsCount int     `json:"ingredients_count"`
}

// Size is a width/height pair in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectionResponse is the complete result of processing one image
type DetectionResponse struct {
	Success            bool               `json:"success"`
	Detections         []Detection        `json:"detections"`
	ProcessedImage     string             `json:"processed_image"`
	OriginalSize       Size               `json:"original_size"`
	TotalObjects       int                `json:"total_objects"`
	NutritionalSummary NutritionalSummary `json:"nutritional_summary"`
	Message            string             `json:"message"`
}
