package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// Ensure QwenExtractor implements MetadataExtractor
var _ driven.MetadataExtractor = (*QwenExtractor)(nil)

const (
	extractorMaxRetries = 3
	extractorBaseDelay  = time.Second
)

// QwenExtractor implements MetadataExtractor against a DashScope-style
// text generation endpoint.
type QwenExtractor struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client

	// sleep is replaced in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// ExtractorConfig holds extraction endpoint configuration.
type ExtractorConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultExtractorConfig returns sensible defaults.
func DefaultExtractorConfig(apiKey string) ExtractorConfig {
	return ExtractorConfig{
		BaseURL: "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
		APIKey:  apiKey,
		Model:   "qwen-plus",
		Timeout: 90 * time.Second,
	}
}

// NewQwenExtractor creates a new extractor.
func NewQwenExtractor(cfg ExtractorConfig) (*QwenExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extractor API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("extractor base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "qwen-plus"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &QwenExtractor{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		sleep:   time.Sleep,
	}, nil
}

const extractionSystemPrompt = `你是一个合同信息提取助手。从给定的合同文本中提取结构化信息，只返回JSON，不要任何其他内容。
需要提取的字段：
- party_a: 甲方名称
- party_b: 乙方名称
- contract_type: 合同方向（如：软件开发、运维服务、人力外包）
- contract_amount: 合同金额（数字，单位元，无法确定时为null）
- signing_date: 签订日期（格式YYYY-MM-DD，无法确定时为null）
- project_description: 项目描述（简要概括）
- positions: 岗位信息
- personnel_list: 人员清单
无法从文本确定的字段返回空字符串或null。`

type generationRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []chatMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		TopP        float64 `json:"top_p"`
	} `json:"parameters"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generationResponse struct {
	Output struct {
		Text string `json:"text"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Extract pulls structured metadata from contract text. Rate limiting
// is retried with exponential backoff; other failures return after the
// retry budget runs out.
func (q *QwenExtractor) Extract(ctx context.Context, contractText string) (*domain.ContractMetadata, string, error) {
	raw, err := q.generate(ctx, contractText)
	if err != nil {
		return nil, "", err
	}

	meta, err := parseMetadataJSON(raw)
	if err != nil {
		return nil, raw, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	return meta, raw, nil
}

func (q *QwenExtractor) generate(ctx context.Context, contractText string) (string, error) {
	reqBody := generationRequest{Model: q.model}
	reqBody.Input.Messages = []chatMessage{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: "合同文本：\n" + contractText},
	}
	reqBody.Parameters.Temperature = 0.1
	reqBody.Parameters.MaxTokens = 2000
	reqBody.Parameters.TopP = 0.9

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	var lastErr error
	for attempt := 0; attempt < extractorMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			q.sleep(extractorBaseDelay << (attempt - 1))
		}

		text, retryable, err := q.doGenerate(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", domain.ErrExtraction, lastErr)
}

func (q *QwenExtractor) doGenerate(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+q.apiKey)

	resp, err := q.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("rate limited: %s", strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed generationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Code != "" {
		return "", false, fmt.Errorf("api error %s: %s", parsed.Code, parsed.Message)
	}
	if parsed.Output.Text == "" {
		return "", false, fmt.Errorf("empty model output")
	}
	return parsed.Output.Text, false, nil
}

// rawMetadata tolerates the loose typing of model output: the amount
// may arrive as a number or a string.
type rawMetadata struct {
	PartyA             string `json:"party_a"`
	PartyB             string `json:"party_b"`
	ContractType       string `json:"contract_type"`
	ContractAmount     any    `json:"contract_amount"`
	SigningDate        string `json:"signing_date"`
	ProjectDescription string `json:"project_description"`
	Positions          string `json:"positions"`
	PersonnelList      string `json:"personnel_list"`
}

// parseMetadataJSON recovers a JSON object from model output. It tries
// the text as-is, then a fenced code block, then the outermost brace
// pair.
func parseMetadataJSON(text string) (*domain.ContractMetadata, error) {
	candidates := []string{strings.TrimSpace(text)}
	if fenced := extractFencedJSON(text); fenced != "" {
		candidates = append(candidates, fenced)
	}
	if braced := extractBracedJSON(text); braced != "" {
		candidates = append(candidates, braced)
	}

	var lastErr error
	for _, candidate := range candidates {
		var raw rawMetadata
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
			lastErr = err
			continue
		}
		return raw.toMetadata(), nil
	}
	return nil, fmt.Errorf("no JSON object in model output: %v", lastErr)
}

func extractFencedJSON(text string) string {
	start := strings.Index(text, "```json")
	if start < 0 {
		start = strings.Index(text, "```")
		if start < 0 {
			return ""
		}
		start += len("```")
	} else {
		start += len("```json")
	}
	rest := text[start:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

func extractBracedJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func (r rawMetadata) toMetadata() *domain.ContractMetadata {
	meta := &domain.ContractMetadata{
		PartyA:             strings.TrimSpace(r.PartyA),
		PartyB:             strings.TrimSpace(r.PartyB),
		ContractType:       strings.TrimSpace(r.ContractType),
		SigningDate:        strings.TrimSpace(r.SigningDate),
		ProjectDescription: strings.TrimSpace(r.ProjectDescription),
		Positions:          strings.TrimSpace(r.Positions),
		PersonnelList:      strings.TrimSpace(r.PersonnelList),
	}
	if amount, ok := coerceAmount(r.ContractAmount); ok {
		meta.ContractAmount = &amount
	}
	return meta
}

func coerceAmount(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(n, ",", ""), "元", ""))
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Model returns the model identifier in use.
func (q *QwenExtractor) Model() string {
	return q.model
}

// Ping verifies the endpoint is reachable. DashScope has no dedicated
// health route, so an unauthorized or malformed probe that still gets
// an HTTP answer counts as reachable.
func (q *QwenExtractor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+q.apiKey)

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (q *QwenExtractor) Close() error {
	q.client.CloseIdleConnections()
	return nil
}
