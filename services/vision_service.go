package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhangshuo1991/ai-food/config"
	"github.com/zhangshuo1991/ai-food/models"
)

const (
	defaultVisionBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultVisionModel   = "qwen3-vl-flash"
)

// VisionService talks to an OpenAI-compatible vision-language endpoint to
// estimate food items from a meal photo and to write health reports.
type VisionService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewVisionService reads endpoint, model and key from the environment.
func NewVisionService() *VisionService {
	return &VisionService{
		apiKey:  config.GetEnv("DASHSCOPE_API_KEY", ""),
		baseURL: strings.TrimRight(config.GetEnv("VISION_BASE_URL", defaultVisionBaseURL), "/"),
		model:   config.GetEnv("VISION_MODEL", defaultVisionModel),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ---------- chat completions plumbing ----------

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // plain string or []contentPart
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imagePayload `json:"image_url,omitempty"`
}

type imagePayload struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *VisionService) chat(ctx context.Context, req chatRequest) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("DASHSCOPE_API_KEY not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call vision API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision API error %d: %s", resp.StatusCode, string(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("parse vision response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("vision API returned no content")
	}
	return cr.Choices[0].Message.Content, nil
}

// ---------- image analysis ----------

const analyzePrompt = `你是一位专业的营养师。请分析这张图片中的食物。
任务：
1. 识别图中的所有食物项目。
2. 估算每种食物的分量（如"1碗"，"200g"）。
3. 估算该分量下的热量(kcal)和主要营养素(蛋白质、碳水、脂肪，单位均为g)。
4. 提供一句简短的中文健康建议。

输出要求：
请直接返回一个纯 JSON 数组，不要包含 Markdown 格式。
数组中的每个对象必须严格符合以下结构：
{"name":"食物名称(中文)","portion":"分量描述","nutrition":{"calories":数字,"protein":数字,"carbs":数字,"fat":数字},"healthTip":"健康建议"}

如果图片中没有可识别的食物，请返回空数组 []。`

// AnalyzeFoodImage sends the photo (data URI or plain URL) to the model and
// returns the validated item list. An empty list is a valid answer meaning
// no food was found; the ledger decides what to do with it.
func (s *VisionService) AnalyzeFoodImage(ctx context.Context, imageURI string) ([]models.FoodItem, error) {
	content, err := s.chat(ctx, chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "你是一个只输出 JSON 数据的 API 接口。"},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: analyzePrompt},
				{Type: "image_url", ImageURL: &imagePayload{URL: imageURI, Detail: "high"}},
			}},
		},
		MaxTokens:   1000,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	return parseFoodItems(content)
}

// parseFoodItems treats model output as an untrusted payload: code fences
// are stripped, the top level must be a JSON array, and every item must
// carry a name and non-negative macros.
func parseFoodItems(content string) ([]models.FoodItem, error) {
	cleaned := stripJSONFences(content)

	var items []models.FoodItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("malformed recognition payload: %w", err)
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("malformed recognition payload: item %d has no name", i)
		}
		n := it.Nutrition
		if n.Calories < 0 || n.Protein < 0 || n.Carbs < 0 || n.Fat < 0 {
			return nil, fmt.Errorf("malformed recognition payload: item %q has negative nutrition", it.Name)
		}
	}
	return items, nil
}

func stripJSONFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ---------- health report ----------

// reportRow is what the model sees per record: image payloads are stripped
// to save tokens.
type reportRow struct {
	Time           string           `json:"time"`
	Type           models.MealType  `json:"type"`
	Foods          string           `json:"foods"`
	TotalNutrition models.Nutrition `json:"totalNutrition"`
}

const reportPromptTemplate = `作为一名高级营养师，请根据以下用户的近期饮食记录生成一份深度健康分析报告。

饮食数据：
%s

任务：
1. 综合评分：根据饮食均衡度、规律性和热量控制给出一个健康得分（0-100）。
2. 总体总结：用一两句话总结该段时间的饮食特点。
3. 深度分析：蔬果摄入、水分与补给、食材多样性。
4. 发现趋势：列出3个具体的观察点。
5. 改进建议：给出3条可执行的建议。

输出要求：
返回纯 JSON 对象，格式如下：
{"score":85,"summary":"...","specificAnalysis":{"fruitVeggie":"...","hydration":"...","variety":"..."},"trends":["...","...","..."],"suggestions":["...","...","..."]}`

// GenerateHealthReport sends simplified rows for the given records and
// parses the report the model answers with. The display date range is
// computed locally from the record timestamps.
func (s *VisionService) GenerateHealthReport(ctx context.Context, records []models.MealRecord) (*models.HealthReport, error) {
	rows := make([]reportRow, 0, len(records))
	for _, r := range records {
		names := make([]string, 0, len(r.Items))
		for _, it := range r.Items {
			names = append(names, fmt.Sprintf("%s (%s)", it.Name, it.Portion))
		}
		rows = append(rows, reportRow{
			Time:           r.Time().Format("2006-01-02 15:04"),
			Type:           r.MealType,
			Foods:          strings.Join(names, ", "),
			TotalNutrition: r.TotalNutrition,
		})
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report rows: %w", err)
	}

	content, err := s.chat(ctx, chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "你是一个专业的营养评估助手，只返回 JSON 格式。"},
			{Role: "user", Content: fmt.Sprintf(reportPromptTemplate, string(data))},
		},
		MaxTokens:   1500,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, err
	}

	var report models.HealthReport
	if err := json.Unmarshal([]byte(stripJSONFences(content)), &report); err != nil {
		return nil, fmt.Errorf("malformed report payload: %w", err)
	}
	report.DateRange = dateRangeOf(records)
	return &report, nil
}

func dateRangeOf(records []models.MealRecord) string {
	if len(records) == 0 {
		return ""
	}
	min, max := records[0].Timestamp, records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp < min {
			min = r.Timestamp
		}
		if r.Timestamp > max {
			max = r.Timestamp
		}
	}
	lo, hi := time.UnixMilli(min), time.UnixMilli(max)
	return fmt.Sprintf("%d.%d - %d.%d", int(lo.Month()), lo.Day(), int(hi.Month()), hi.Day())
}
