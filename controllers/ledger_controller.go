package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/zhangshuo1991/ai-food/logger"
	"github.com/zhangshuo1991/ai-food/models"
	"github.com/zhangshuo1991/ai-food/services"
	"github.com/zhangshuo1991/ai-food/utils"

	"github.com/gin-gonic/gin"
)

type LedgerController struct {
	Ledger *services.LedgerService
	Hub    *services.EventHub
	Images *utils.ImageStore // nil when S3 photo offload is not configured
}

func NewLedgerController(ledger *services.LedgerService, hub *services.EventHub, images *utils.ImageStore) *LedgerController {
	return &LedgerController{Ledger: ledger, Hub: hub, Images: images}
}

// ---------- reads ----------

func (lc *LedgerController) ListRecords(c *gin.Context) {
	c.JSON(http.StatusOK, lc.Ledger.Records())
}

func (lc *LedgerController) TodaySummary(c *gin.Context) {
	total, todays := lc.Ledger.DailyTotal()
	if todays == nil {
		todays = []models.MealRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"date":    time.Now().Format("2006-01-02"),
		"total":   total,
		"records": todays,
	})
}

func (lc *LedgerController) History(c *gin.Context) {
	q, err := historyQueryFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries := lc.Ledger.History(q)
	if entries == nil {
		entries = []services.HistoryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// ---------- mutations ----------

type AnalyzeRequest struct {
	Image string `json:"image" binding:"required"` // data URI from the capture control
}

func (lc *LedgerController) AnalyzeImage(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imageURI := req.Image
	if lc.Images != nil {
		if url, err := lc.Images.UploadMealPhoto(c.Request.Context(), req.Image); err == nil {
			imageURI = url
		} else {
			logger.Warn("photo offload failed, keeping data URI", "error", err)
		}
	}

	rec, err := lc.Ledger.RecordFromRecognition(c.Request.Context(), imageURI)
	if err != nil {
		renderLedgerError(c, err)
		return
	}

	lc.Hub.Broadcast("record.created", rec)
	c.JSON(http.StatusCreated, rec)
}

type ManualEntryRequest struct {
	Name      string  `json:"name" binding:"required"`
	Portion   string  `json:"portion"`
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fat       float64 `json:"fat"`
	HealthTip string  `json:"healthTip"`
}

func (lc *LedgerController) ManualEntry(c *gin.Context) {
	var req ManualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := models.FoodItem{
		Name:      req.Name,
		Portion:   req.Portion,
		HealthTip: req.HealthTip,
		Nutrition: models.Nutrition{
			Calories: req.Calories,
			Protein:  req.Protein,
			Carbs:    req.Carbs,
			Fat:      req.Fat,
		},
	}

	rec, err := lc.Ledger.RecordFromManualEntry(c.Request.Context(), item)
	if err != nil {
		renderLedgerError(c, err)
		return
	}

	lc.Hub.Broadcast("record.created", rec)
	c.JSON(http.StatusCreated, rec)
}

func (lc *LedgerController) DeleteRecord(c *gin.Context) {
	id := c.Param("id")
	if err := lc.Ledger.DeleteRecord(c.Request.Context(), id); err != nil {
		renderLedgerError(c, err)
		return
	}

	lc.Hub.Broadcast("record.deleted", gin.H{"id": id})
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ---------- health report ----------

type ReportRequest struct {
	Search string `json:"search"`
	Start  string `json:"start"` // YYYY-MM-DD, optional
	End    string `json:"end"`   // YYYY-MM-DD, optional
}

func (lc *LedgerController) GenerateReport(c *gin.Context) {
	var req ReportRequest
	// an empty body means "report over everything"
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	q := services.HistoryQuery{Search: req.Search}
	if req.Start != "" {
		t, err := time.ParseInLocation("2006-01-02", req.Start, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
			return
		}
		q.Start = &t
	}
	if req.End != "" {
		t, err := time.ParseInLocation("2006-01-02", req.End, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
			return
		}
		q.End = &t
	}

	report, err := lc.Ledger.GenerateReport(c.Request.Context(), q)
	if err != nil {
		renderLedgerError(c, err)
		return
	}

	lc.Hub.Broadcast("report.generated", gin.H{"dateRange": report.DateRange, "score": report.Score})
	c.JSON(http.StatusOK, report)
}

// ---------- helpers ----------

func historyQueryFromRequest(c *gin.Context) (services.HistoryQuery, error) {
	q := services.HistoryQuery{Search: c.Query("search")}

	if v := c.Query("start"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return q, errors.New("invalid start date, expected YYYY-MM-DD")
		}
		q.Start = &t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return q, errors.New("invalid end date, expected YYYY-MM-DD")
		}
		q.End = &t
	}
	return q, nil
}

// renderLedgerError maps the service failure taxonomy to distinct statuses
// and user-facing messages.
func renderLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoFoodRecognized):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "未能识别出食物，请尝试更清晰的角度。"})
	case errors.Is(err, services.ErrNotEnoughRecords):
		c.JSON(http.StatusBadRequest, gin.H{"error": "记录太少，无法生成有意义的报告。请多记录几餐后再试。"})
	case errors.Is(err, services.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStoreUnavailable), errors.Is(err, services.ErrPersistFailed):
		logger.Error("persistence failure", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "保存失败，记录未改动，请稍后重试。"})
	case errors.Is(err, services.ErrRecognitionFailed):
		logger.Error("recognition failure", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "分析失败，请重试。"})
	case errors.Is(err, services.ErrReportFailed):
		logger.Error("report failure", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "生成报告失败，请稍后重试。"})
	default:
		logger.Error("ledger operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
