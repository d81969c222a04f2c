package services

import (
	"context"
	"time"

	"github.com/zhangshuo1991/ai-food/models"
)

// demoMeal is one backdated sample meal for first-run demos.
type demoMeal struct {
	age      time.Duration
	imageURI string
	items    []models.FoodItem
}

var demoMeals = []demoMeal{
	{
		age:      26 * time.Hour,
		imageURI: "https://images.unsplash.com/photo-1565299624946-b28f40a0ae38?w=400&h=400&fit=crop",
		items: []models.FoodItem{
			{Name: "玛格丽特披萨", Portion: "2片", Nutrition: models.Nutrition{Calories: 550, Protein: 30, Carbs: 40, Fat: 25}, HealthTip: "披萨热量较高，建议搭配蔬菜沙拉食用以增加饱腹感。"},
		},
	},
	{
		age:      6 * time.Hour,
		imageURI: "https://images.unsplash.com/photo-1504754524776-3503a1955cf2?w=400&h=400&fit=crop",
		items: []models.FoodItem{
			{Name: "燕麦粥", Portion: "1碗", Nutrition: models.Nutrition{Calories: 250, Protein: 8, Carbs: 45, Fat: 4}, HealthTip: "燕麦富含β-葡聚糖，有助于调节血糖水平。"},
			{Name: "蓝莓", Portion: "50g", Nutrition: models.Nutrition{Calories: 30, Protein: 0.5, Carbs: 7, Fat: 0.2}, HealthTip: "蓝莓是抗氧化剂之王，有助于延缓衰老。"},
			{Name: "煮鸡蛋", Portion: "1个", Nutrition: models.Nutrition{Calories: 140, Protein: 6.5, Carbs: 3, Fat: 7.8}, HealthTip: "鸡蛋是优质蛋白质的来源，且吸收率极高。"},
		},
	},
	{
		age:      2 * time.Hour,
		imageURI: "https://images.unsplash.com/photo-1546069901-ba9599a7e63c?w=400&h=400&fit=crop",
		items: []models.FoodItem{
			{Name: "牛油果沙拉", Portion: "1份", Nutrition: models.Nutrition{Calories: 350, Protein: 8, Carbs: 20, Fat: 25}, HealthTip: "牛油果富含健康的不饱和脂肪酸，有助于心血管健康。"},
			{Name: "全麦面包", Portion: "2片", Nutrition: models.Nutrition{Calories: 300, Protein: 17, Carbs: 60, Fat: 5}, HealthTip: "全麦面包比白面包含有更多的膳食纤维，饱腹感更强。"},
		},
	},
}

// SeedDemoData inserts the sample meals through the normal persist-then-
// prepend path, oldest first so newest-first order holds. It does nothing
// when the ledger already has records.
func (s *LedgerService) SeedDemoData(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	empty := len(s.records) == 0
	s.mu.RUnlock()
	if !empty {
		return nil
	}

	now := s.now()
	for _, d := range demoMeals {
		if _, err := s.insertAt(ctx, now.Add(-d.age), d.imageURI, d.items); err != nil {
			return err
		}
	}
	return nil
}
