package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhangshuo1991/ai-food/models"
)

// ---------- Test doubles ----------

type fakeStore struct {
	listed    []models.MealRecord
	listErr   error
	insertErr error
	deleteErr error

	inserted []models.MealRecord
	deleted  []string
}

func (f *fakeStore) ListAll(context.Context) ([]models.MealRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listed, nil
}

func (f *fakeStore) Insert(_ context.Context, rec *models.MealRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *rec)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRecognizer struct {
	items      []models.FoodItem
	analyzeErr error
	report     *models.HealthReport
	reportErr  error

	analyzeCalls int
	reportCalls  int
	lastBatch    []models.MealRecord
}

func (f *fakeRecognizer) AnalyzeFoodImage(context.Context, string) ([]models.FoodItem, error) {
	f.analyzeCalls++
	return f.items, f.analyzeErr
}

func (f *fakeRecognizer) GenerateHealthReport(_ context.Context, records []models.MealRecord) (*models.HealthReport, error) {
	f.reportCalls++
	f.lastBatch = records
	return f.report, f.reportErr
}

// ---------- Helpers ----------

var testNow = time.Date(2026, 3, 15, 20, 0, 0, 0, time.Local)

func newTestLedger(store RecordStore, vision Recognizer) *LedgerService {
	s := NewLedgerService(store, vision)
	s.now = func() time.Time { return testNow }
	return s
}

func mealAt(t *testing.T, id string, at time.Time, names ...string) models.MealRecord {
	t.Helper()
	items := make([]models.FoodItem, 0, len(names))
	for _, n := range names {
		items = append(items, models.FoodItem{
			Name:      n,
			Portion:   "1份",
			Nutrition: models.Nutrition{Calories: 100, Protein: 5, Carbs: 10, Fat: 3},
		})
	}
	rec, err := models.NewMealRecord(id, at, "uri://"+id, items)
	if err != nil {
		t.Fatalf("mealAt(%s): %v", id, err)
	}
	return *rec
}

// ---------- Lifecycle ----------

func TestInitializeSortsNewestFirst(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "a", testNow.Add(-48*time.Hour), "燕麦粥"),
		mealAt(t, "c", testNow.Add(-1*time.Hour), "披萨"),
		mealAt(t, "b", testNow.Add(-24*time.Hour), "沙拉"),
	}}
	s := newTestLedger(store, &fakeRecognizer{})

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	got := s.Records()
	wantOrder := []string{"c", "b", "a"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d records, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("records[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestInitializeLoadFailureLeavesLedgerUsable(t *testing.T) {
	store := &fakeStore{listErr: ErrStoreUnavailable}
	s := newTestLedger(store, &fakeRecognizer{})

	if err := s.Initialize(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Initialize error = %v, want ErrStoreUnavailable", err)
	}
	if got := s.Records(); len(got) != 0 {
		t.Errorf("ledger not empty after failed load: %d records", len(got))
	}

	// Mutations still work once the store recovers.
	store.listErr = nil
	if _, err := s.RecordFromManualEntry(context.Background(), models.FoodItem{Name: "苹果"}); err != nil {
		t.Fatalf("manual entry after failed load: %v", err)
	}
	if got := s.Records(); len(got) != 1 {
		t.Errorf("got %d records after manual entry, want 1", len(got))
	}
}

// ---------- Recognition ----------

func TestRecordFromRecognitionPersistsAndPrepends(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "old", testNow.Add(-2*time.Hour), "沙拉"),
	}}
	vision := &fakeRecognizer{items: []models.FoodItem{
		{Name: "玛格丽特披萨", Portion: "2块", Nutrition: models.Nutrition{Calories: 550, Protein: 22, Carbs: 60, Fat: 24}},
	}}
	s := newTestLedger(store, vision)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	rec, err := s.RecordFromRecognition(context.Background(), "data:image/jpeg;base64,xxxx")
	if err != nil {
		t.Fatalf("RecordFromRecognition: %v", err)
	}
	if rec.ImageURI != "data:image/jpeg;base64,xxxx" {
		t.Errorf("ImageURI = %q", rec.ImageURI)
	}
	if rec.TotalNutrition.Calories != 550 {
		t.Errorf("Calories = %v, want 550", rec.TotalNutrition.Calories)
	}
	if rec.MealType != models.MealTypeDinner {
		t.Errorf("MealType at 20:00 = %s, want Dinner", rec.MealType)
	}

	if len(store.inserted) != 1 || store.inserted[0].ID != rec.ID {
		t.Error("record not persisted before acknowledgement")
	}
	got := s.Records()
	if len(got) != 2 || got[0].ID != rec.ID {
		t.Error("new record not prepended")
	}
}

func TestRecordFromRecognitionNoFood(t *testing.T) {
	s := newTestLedger(&fakeStore{}, &fakeRecognizer{items: nil})

	_, err := s.RecordFromRecognition(context.Background(), "data:image/jpeg;base64,xxxx")
	if !errors.Is(err, ErrNoFoodRecognized) {
		t.Fatalf("err = %v, want ErrNoFoodRecognized", err)
	}
	if got := s.Records(); len(got) != 0 {
		t.Errorf("ledger changed on empty recognition: %d records", len(got))
	}
}

func TestRecordFromRecognitionServiceFailure(t *testing.T) {
	vision := &fakeRecognizer{analyzeErr: errors.New("upstream 500")}
	s := newTestLedger(&fakeStore{}, vision)

	_, err := s.RecordFromRecognition(context.Background(), "data:image/jpeg;base64,xxxx")
	if !errors.Is(err, ErrRecognitionFailed) {
		t.Fatalf("err = %v, want ErrRecognitionFailed", err)
	}
	if got := s.Records(); len(got) != 0 {
		t.Errorf("ledger changed on failure: %d records", len(got))
	}
}

func TestRecordFromRecognitionPersistFailureLeavesStateUnchanged(t *testing.T) {
	store := &fakeStore{insertErr: ErrPersistFailed}
	vision := &fakeRecognizer{items: []models.FoodItem{{Name: "披萨"}}}
	s := newTestLedger(store, vision)

	_, err := s.RecordFromRecognition(context.Background(), "data:image/jpeg;base64,xxxx")
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}
	if got := s.Records(); len(got) != 0 {
		t.Errorf("record visible despite failed persist: %d records", len(got))
	}
}

// ---------- Manual entry ----------

func TestRecordFromManualEntry(t *testing.T) {
	store := &fakeStore{}
	s := newTestLedger(store, &fakeRecognizer{})

	item := models.FoodItem{
		Name:      "酸奶",
		Portion:   "1杯",
		Nutrition: models.Nutrition{Calories: 120, Protein: 10, Carbs: 15, Fat: 2},
	}
	rec, err := s.RecordFromManualEntry(context.Background(), item)
	if err != nil {
		t.Fatalf("RecordFromManualEntry: %v", err)
	}
	if rec.ImageURI != models.ManualImagePlaceholder {
		t.Error("manual entry did not get the placeholder image")
	}
	if !rec.IsManual() {
		t.Error("IsManual() = false")
	}
	if rec.TotalNutrition != item.Nutrition {
		t.Errorf("TotalNutrition = %+v, want %+v", rec.TotalNutrition, item.Nutrition)
	}
	if len(store.inserted) != 1 {
		t.Error("manual entry not persisted")
	}
}

func TestRecordFromManualEntryValidation(t *testing.T) {
	s := newTestLedger(&fakeStore{}, &fakeRecognizer{})

	cases := []struct {
		name string
		item models.FoodItem
	}{
		{"blank name", models.FoodItem{Name: "   "}},
		{"negative calories", models.FoodItem{Name: "苹果", Nutrition: models.Nutrition{Calories: -1}}},
		{"negative fat", models.FoodItem{Name: "苹果", Nutrition: models.Nutrition{Fat: -0.5}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.RecordFromManualEntry(context.Background(), tc.item); !errors.Is(err, ErrInvalidItem) {
				t.Errorf("err = %v, want ErrInvalidItem", err)
			}
		})
	}
	if got := s.Records(); len(got) != 0 {
		t.Errorf("invalid entries reached the ledger: %d records", len(got))
	}
}

// ---------- Delete ----------

func TestDeleteRecord(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "keep", testNow.Add(-1*time.Hour), "沙拉"),
		mealAt(t, "gone", testNow.Add(-2*time.Hour), "披萨"),
	}}
	s := newTestLedger(store, &fakeRecognizer{})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := s.DeleteRecord(context.Background(), "gone"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	got := s.Records()
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("records after delete = %+v", got)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "gone" {
		t.Error("store delete not issued")
	}
}

func TestDeleteRecordUnknownIDIsNoOp(t *testing.T) {
	store := &fakeStore{deleteErr: ErrPersistFailed} // would fail if reached
	s := newTestLedger(store, &fakeRecognizer{})

	if err := s.DeleteRecord(context.Background(), "missing"); err != nil {
		t.Fatalf("DeleteRecord of unknown id: %v", err)
	}
}

func TestDeleteRecordStoreFailureKeepsRecord(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "r1", testNow.Add(-1*time.Hour), "沙拉"),
	}}
	s := newTestLedger(store, &fakeRecognizer{})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	store.deleteErr = ErrPersistFailed
	if err := s.DeleteRecord(context.Background(), "r1"); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}
	if got := s.Records(); len(got) != 1 {
		t.Errorf("record dropped despite failed durable delete: %d records", len(got))
	}
}

// ---------- Daily total ----------

func TestDailyTotalCoversTodayOnly(t *testing.T) {
	breakfast := mealAt(t, "b", testNow.Add(-14*time.Hour), "燕麦粥") // 06:00 today
	lunch := mealAt(t, "l", testNow.Add(-8*time.Hour), "沙拉")      // 12:00 today
	lunch.TotalNutrition = models.Nutrition{Calories: 650, Protein: 25, Carbs: 80, Fat: 30}
	breakfast.TotalNutrition = models.Nutrition{Calories: 420, Protein: 18, Carbs: 55, Fat: 12}
	yesterday := mealAt(t, "y", testNow.Add(-26*time.Hour), "披萨")

	store := &fakeStore{listed: []models.MealRecord{breakfast, lunch, yesterday}}
	s := newTestLedger(store, &fakeRecognizer{})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	total, todays := s.DailyTotal()
	if total.Calories != 1070 {
		t.Errorf("Calories = %v, want 1070", total.Calories)
	}
	if total.Protein != 43 {
		t.Errorf("Protein = %v, want 43", total.Protein)
	}
	if len(todays) != 2 {
		t.Fatalf("got %d records for today, want 2", len(todays))
	}
	if todays[0].ID != "l" || todays[1].ID != "b" {
		t.Errorf("today order = %s, %s; want l, b", todays[0].ID, todays[1].ID)
	}
}

// ---------- History ----------

func TestHistorySearchMatchesItemNames(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "a", testNow.Add(-1*time.Hour), "牛油果沙拉", "全麦面包"),
		mealAt(t, "b", testNow.Add(-2*time.Hour), "玛格丽特披萨"),
	}}
	s := newTestLedger(store, &fakeRecognizer{})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	got := s.History(HistoryQuery{Search: "牛油果"})
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("search 牛油果 = %+v, want only record a", got)
	}

	all := s.History(HistoryQuery{})
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Errorf("empty search should return everything newest first, got %+v", all)
	}
}

func TestHistoryDateRange(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "d0", testNow, "今天餐"),
		mealAt(t, "d1", testNow.AddDate(0, 0, -1), "昨天餐"),
		mealAt(t, "d2", testNow.AddDate(0, 0, -2), "前天餐"),
	}}
	s := newTestLedger(store, &fakeRecognizer{})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	start := testNow.AddDate(0, 0, -1)
	end := testNow
	got := s.History(HistoryQuery{Start: &start, End: &end})
	if len(got) != 2 {
		t.Fatalf("got %d records in range, want 2", len(got))
	}
	if got[0].ID != "d0" || got[1].ID != "d1" {
		t.Errorf("range order = %s, %s; want d0, d1", got[0].ID, got[1].ID)
	}
}

func TestHistoryGroupLabels(t *testing.T) {
	older := testNow.AddDate(0, 0, -5) // 2026-03-10, a Tuesday
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "t1", testNow.Add(-1*time.Hour), "晚餐"),
		mealAt(t, "t2", testNow.Add(-12*time.Hour), "早餐"),
		mealAt(t, "y1", testNow.AddDate(0, 0, -1), "昨天餐"),
		mealAt(t, "o1", older, "旧餐"),
	}}
	s := newTestLedger(store, &fakeRecognizer{})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	got := s.History(HistoryQuery{})
	want := []struct {
		id       string
		label    string
		newGroup bool
	}{
		{"t1", "今天", true},
		{"t2", "今天", false},
		{"y1", "昨天", true},
		{"o1", "3/10 周二", true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		e := got[i]
		if e.ID != w.id || e.DateLabel != w.label || e.NewGroup != w.newGroup {
			t.Errorf("entry %d = {%s %s %v}, want {%s %s %v}",
				i, e.ID, e.DateLabel, e.NewGroup, w.id, w.label, w.newGroup)
		}
	}
}

// ---------- Reports ----------

func TestGenerateReportRequiresTwoRecords(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "only", testNow, "沙拉"),
	}}
	vision := &fakeRecognizer{}
	s := newTestLedger(store, vision)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := s.GenerateReport(context.Background(), HistoryQuery{})
	if !errors.Is(err, ErrNotEnoughRecords) {
		t.Fatalf("err = %v, want ErrNotEnoughRecords", err)
	}
	if vision.reportCalls != 0 {
		t.Error("report generation reached the AI service with too few records")
	}
}

func TestGenerateReportCapsBatch(t *testing.T) {
	var recs []models.MealRecord
	for i := 0; i < 35; i++ {
		recs = append(recs, mealAt(t, string(rune('a'+i%26))+string(rune('0'+i/26)), testNow.Add(-time.Duration(i)*time.Hour), "餐"))
	}
	store := &fakeStore{listed: recs}
	vision := &fakeRecognizer{report: &models.HealthReport{Score: 82, Summary: "总体均衡。"}}
	s := newTestLedger(store, vision)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	report, err := s.GenerateReport(context.Background(), HistoryQuery{})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if report.Score != 82 {
		t.Errorf("Score = %d, want 82", report.Score)
	}
	if len(vision.lastBatch) != reportBatchLimit {
		t.Fatalf("batch size = %d, want %d", len(vision.lastBatch), reportBatchLimit)
	}
	newest := s.Records()[0]
	if vision.lastBatch[0].ID != newest.ID {
		t.Error("batch does not start with the newest record")
	}
}

func TestGenerateReportServiceFailure(t *testing.T) {
	store := &fakeStore{listed: []models.MealRecord{
		mealAt(t, "a", testNow, "沙拉"),
		mealAt(t, "b", testNow.Add(-1*time.Hour), "披萨"),
	}}
	vision := &fakeRecognizer{reportErr: errors.New("upstream timeout")}
	s := newTestLedger(store, vision)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := s.GenerateReport(context.Background(), HistoryQuery{}); !errors.Is(err, ErrReportFailed) {
		t.Fatalf("err = %v, want ErrReportFailed", err)
	}
}
