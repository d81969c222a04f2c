package models

// Nutrition is the macro snapshot of a single food item or a whole meal.
// Calories is kcal, the rest are grams.
type Nutrition struct {
	Calories float64 `gorm:"default:0" json:"calories"`
	Protein  float64 `gorm:"default:0" json:"protein"`
	Carbs    float64 `gorm:"default:0" json:"carbs"`
	Fat      float64 `gorm:"default:0" json:"fat"`
}

// Add returns the component-wise sum of n and other.
func (n Nutrition) Add(other Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + other.Calories,
		Protein:  n.Protein + other.Protein,
		Carbs:    n.Carbs + other.Carbs,
		Fat:      n.Fat + other.Fat,
	}
}

// SumNutrition reduces a list of items to their combined macros,
// seeded at zero.
func SumNutrition(items []FoodItem) Nutrition {
	var total Nutrition
	for _, it := range items {
		total = total.Add(it.Nutrition)
	}
	return total
}
