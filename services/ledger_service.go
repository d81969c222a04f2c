package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zhangshuo1991/ai-food/logger"
	"github.com/zhangshuo1991/ai-food/models"
	"github.com/zhangshuo1991/ai-food/utils"
)

// Recognizer is the AI collaborator: it turns a meal photo into food items
// and a batch of records into a health report.
type Recognizer interface {
	AnalyzeFoodImage(ctx context.Context, imageURI string) ([]models.FoodItem, error)
	GenerateHealthReport(ctx context.Context, records []models.MealRecord) (*models.HealthReport, error)
}

// reportBatchLimit caps how many records are handed to report generation,
// newest first.
const reportBatchLimit = 30

// LedgerService owns the in-memory meal collection and mediates every
// mutation through the record store. A record becomes durable before it
// becomes visible, so the in-memory state may lag the store mid-flight but
// never runs ahead of it.
type LedgerService struct {
	store  RecordStore
	vision Recognizer
	now    func() time.Time

	opMu sync.Mutex // serializes mutations: at most one in flight
	mu   sync.RWMutex
	records []models.MealRecord // canonical order: newest first
}

func NewLedgerService(store RecordStore, vision Recognizer) *LedgerService {
	return &LedgerService{store: store, vision: vision, now: time.Now}
}

// ---------- Lifecycle ----------

// Initialize loads the durable collection and establishes newest-first
// order before any other operation. On failure the ledger stays empty but
// remains usable.
func (s *LedgerService) Initialize(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	recs, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Timestamp != recs[j].Timestamp {
			return recs[i].Timestamp > recs[j].Timestamp
		}
		return recs[i].ID > recs[j].ID // ids are creation-ordered tiebreakers
	})

	s.mu.Lock()
	s.records = recs
	s.mu.Unlock()

	logger.Info("ledger loaded", "records", len(recs))
	return nil
}

// ---------- Mutations ----------

// RecordFromRecognition analyzes a meal photo and, when the service finds
// food in it, persists and prepends a new record. Any failure leaves the
// ledger exactly as it was.
func (s *LedgerService) RecordFromRecognition(ctx context.Context, imageURI string) (*models.MealRecord, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	items, err := s.vision.AnalyzeFoodImage(ctx, imageURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	if len(items) == 0 {
		return nil, ErrNoFoodRecognized
	}
	return s.insertAt(ctx, s.now(), imageURI, items)
}

// RecordFromManualEntry logs a single hand-entered item under the manual
// placeholder image.
func (s *LedgerService) RecordFromManualEntry(ctx context.Context, item models.FoodItem) (*models.MealRecord, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	n := item.Nutrition
	if n.Calories < 0 || n.Protein < 0 || n.Carbs < 0 || n.Fat < 0 {
		return nil, fmt.Errorf("%w: nutrition values must be non-negative", ErrInvalidItem)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.insertAt(ctx, s.now(), models.ManualImagePlaceholder, []models.FoodItem{item})
}

// DeleteRecord removes a record from the store first, then from memory.
// Unknown ids are a no-op; a failed durable delete keeps the record
// visible.
func (s *LedgerService) DeleteRecord(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	idx := -1
	for i := range s.records {
		if s.records[i].ID == id {
			idx = i
			break
		}
	}
	s.mu.RUnlock()
	if idx < 0 {
		return nil
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	s.mu.Lock()
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.mu.Unlock()
	return nil
}

// insertAt builds, persists and prepends one record. Caller holds opMu.
func (s *LedgerService) insertAt(ctx context.Context, at time.Time, imageURI string, items []models.FoodItem) (*models.MealRecord, error) {
	rec, err := models.NewMealRecord(utils.NewRecordID(at), at, imageURI, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}

	s.mu.Lock()
	s.records = append([]models.MealRecord{*rec}, s.records...)
	s.mu.Unlock()

	logger.Info("record created", "id", rec.ID, "mealType", rec.MealType, "items", len(rec.Items))
	return rec, nil
}

// ---------- Derived views ----------

// Records returns a snapshot of the full collection, newest first.
func (s *LedgerService) Records() []models.MealRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MealRecord, len(s.records))
	copy(out, s.records)
	return out
}

// DailyTotal reduces today's records into one Nutrition value. Pure and
// recomputed on every read; nothing is cached.
func (s *LedgerService) DailyTotal() (models.Nutrition, []models.MealRecord) {
	startMs := dayStart(s.now()).UnixMilli()

	var total models.Nutrition
	var todays []models.MealRecord
	for _, r := range s.Records() {
		if r.Timestamp >= startMs {
			total = total.Add(r.TotalNutrition)
			todays = append(todays, r)
		}
	}
	return total, todays
}

// HistoryQuery filters the collection. An empty search term and unset date
// bounds match everything.
type HistoryQuery struct {
	Search string
	Start  *time.Time // inclusive, normalized to local midnight
	End    *time.Time // inclusive, normalized to local end of day
}

// HistoryEntry is a record plus its date-bucket header state for display.
type HistoryEntry struct {
	models.MealRecord
	DateLabel string `json:"dateLabel"`
	NewGroup  bool   `json:"newGroup"`
}

// History returns the filtered collection newest first, each entry labeled
// with its date bucket. NewGroup is set whenever the label differs from the
// immediately preceding entry, so headers fall out of adjacent-pair
// comparison over the already-sorted sequence.
func (s *LedgerService) History(q HistoryQuery) []HistoryEntry {
	matched := s.filter(q)
	now := s.now()

	entries := make([]HistoryEntry, 0, len(matched))
	prev := ""
	for _, r := range matched {
		label := dateLabel(r.Time(), now)
		entries = append(entries, HistoryEntry{
			MealRecord: r,
			DateLabel:  label,
			NewGroup:   label != prev,
		})
		prev = label
	}
	return entries
}

func (s *LedgerService) filter(q HistoryQuery) []models.MealRecord {
	term := strings.ToLower(strings.TrimSpace(q.Search))

	var out []models.MealRecord
	for _, r := range s.Records() {
		if term != "" && !anyItemMatches(r.Items, term) {
			continue
		}
		if q.Start != nil && r.Timestamp < dayStart(*q.Start).UnixMilli() {
			continue
		}
		if q.End != nil && r.Timestamp > dayEnd(*q.End).UnixMilli() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func anyItemMatches(items models.FoodItemList, term string) bool {
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), term) {
			return true
		}
	}
	return false
}

// ---------- Health report ----------

// GenerateReport hands the filtered history, capped at the 30 most recent
// records, to the AI collaborator. Requesting a report over a ledger with
// fewer than two records is rejected before any network call.
func (s *LedgerService) GenerateReport(ctx context.Context, q HistoryQuery) (*models.HealthReport, error) {
	s.mu.RLock()
	total := len(s.records)
	s.mu.RUnlock()
	if total < 2 {
		return nil, ErrNotEnoughRecords
	}

	batch := s.filter(q)
	if len(batch) > reportBatchLimit {
		batch = batch[:reportBatchLimit]
	}

	report, err := s.vision.GenerateHealthReport(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}
	return report, nil
}

// ---------- Date helpers ----------

var weekdayNames = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// dateLabel buckets a record's day for history headers: 今天, 昨天, or a
// short month/day/weekday string.
func dateLabel(t, now time.Time) string {
	day := dayStart(t)
	today := dayStart(now)
	switch {
	case day.Equal(today):
		return "今天"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "昨天"
	default:
		return fmt.Sprintf("%d/%d %s", int(t.Month()), t.Day(), weekdayNames[int(t.Weekday())])
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
