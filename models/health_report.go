package models

// SpecificAnalysis carries the three focused observations the report
// model is asked for.
type SpecificAnalysis struct {
	FruitVeggie string `json:"fruitVeggie"`
	Hydration   string `json:"hydration"`
	Variety     string `json:"variety"`
}

// HealthReport is the AI-generated summary over a batch of recent records.
// It is derived output, never persisted.
type HealthReport struct {
	Score            int               `json:"score"` // 0-100
	Summary          string            `json:"summary"`
	Trends           []string          `json:"trends"`
	Suggestions      []string          `json:"suggestions"`
	DateRange        string            `json:"dateRange"`
	SpecificAnalysis *SpecificAnalysis `json:"specificAnalysis,omitempty"`
}
