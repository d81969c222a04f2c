package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ManualImagePlaceholder marks records entered by hand instead of a photo.
// The client renders it as a fork-and-knife glyph.
const ManualImagePlaceholder = "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='100' height='100' viewBox='0 0 24 24' fill='none' stroke='%2310B981' stroke-width='1.5' stroke-linecap='round' stroke-linejoin='round'%3E%3Cpath d='M3 2v7c0 1.1.9 2 2 2h4a2 2 0 0 0 2-2V2'/%3E%3Cpath d='M7 2v20'/%3E%3Cpath d='M21 15V2v0a5 5 0 0 0-5 5v6c0 1.1.9 2 2 2h3Zm0 0v7'/%3E%3C/svg%3E"

type MealType string

const (
	MealTypeBreakfast MealType = "Breakfast"
	MealTypeLunch     MealType = "Lunch"
	MealTypeDinner    MealType = "Dinner"
	MealTypeSnack     MealType = "Snack"
)

// ClassifyMealType maps a local wall-clock hour to a meal slot. It is
// evaluated once when the record is created and never recomputed.
func ClassifyMealType(hour int) MealType {
	switch {
	case hour >= 5 && hour < 10:
		return MealTypeBreakfast
	case hour >= 10 && hour < 16:
		return MealTypeLunch
	case hour >= 16 && hour < 22:
		return MealTypeDinner
	default:
		return MealTypeSnack
	}
}

// FoodItem is one recognized or manually entered food inside a meal.
type FoodItem struct {
	Name      string    `json:"name"`
	Portion   string    `json:"portion"`
	Nutrition Nutrition `json:"nutrition"`
	HealthTip string    `json:"healthTip"`
}

// FoodItemList is persisted as a single JSONB column on the record row.
type FoodItemList []FoodItem

func (l FoodItemList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *FoodItemList) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported source type %T for FoodItemList", src)
	}
}

// MealRecord is one logged meal. Records are immutable once created: the
// ledger only ever inserts and deletes whole records, never edits them.
type MealRecord struct {
	ID             string       `gorm:"primaryKey;size:64" json:"id"`
	Timestamp      int64        `gorm:"index;not null" json:"timestamp"` // ms since epoch
	ImageURI       string       `gorm:"type:text" json:"imageUri"`
	Items          FoodItemList `gorm:"type:jsonb;not null" json:"items"`
	TotalNutrition Nutrition    `gorm:"embedded;embeddedPrefix:total_" json:"totalNutrition"`
	MealType       MealType     `gorm:"size:16;not null" json:"mealType"`
}

// NewMealRecord builds a fully-populated record. The total is summed here
// from the items and never touched again.
func NewMealRecord(id string, at time.Time, imageURI string, items []FoodItem) (*MealRecord, error) {
	if len(items) == 0 {
		return nil, errors.New("meal record needs at least one food item")
	}
	return &MealRecord{
		ID:             id,
		Timestamp:      at.UnixMilli(),
		ImageURI:       imageURI,
		Items:          append(FoodItemList(nil), items...),
		TotalNutrition: SumNutrition(items),
		MealType:       ClassifyMealType(at.Hour()),
	}, nil
}

// Time returns the creation instant in the local zone.
func (r *MealRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// IsManual reports whether the record came from the manual-entry form.
func (r *MealRecord) IsManual() bool {
	return r.ImageURI == ManualImagePlaceholder
}
