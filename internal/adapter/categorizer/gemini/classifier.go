// Package gemini is the categorization gateway backed by the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/iho/spareledger/internal/domain"
)

// DefaultModels is the fallback chain tried in order when a model is out of quota.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-2.0-flash-lite"}

const systemPrompt = `You are the categorization engine of a personal finance ledger.
You receive a JSON array of raw bank transactions, each {"id", "raw_text"}.
For every transaction:
1. clean_name: turn noisy statement text such as "CRV*AMZN MKTP ES MADRID" into a merchant name such as "Amazon".
2. category: exactly one of [Housing, Groceries, Transport, Dining and Entertainment, Subscriptions, Health, Shopping, Income, Transfers, Other].
3. is_subscription: true when the charge is a recurring paid service.
Return one object per input id with fields id, clean_name, category, is_subscription.
Return only the JSON array.`

var responseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":              {Type: genai.TypeString},
			"clean_name":      {Type: genai.TypeString},
			"category":        {Type: genai.TypeString},
			"is_subscription": {Type: genai.TypeBoolean},
		},
		Required: []string{"id", "clean_name", "category", "is_subscription"},
	},
}

// Config configures the classifier.
type Config struct {
	APIKey string
	// Models overrides DefaultModels.
	Models []string
	// BaseURL overrides the Gemini endpoint.
	BaseURL string
	// RequestTimeout bounds a single model call.
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// Classifier implements usecase.CategorizationGateway.
type Classifier struct {
	models  *genai.Models
	logger  zerolog.Logger
	chain   []string
	timeout time.Duration
}

type requestItem struct {
	ID      string `json:"id"`
	RawText string `json:"raw_text"`
}

type resultItem struct {
	ID             string `json:"id"`
	CleanName      string `json:"clean_name"`
	Category       string `json:"category"`
	IsSubscription bool   `json:"is_subscription"`
}

// NewClassifier creates a Classifier with an explicit API key.
func NewClassifier(ctx context.Context, cfg Config) (*Classifier, error) {
	key := strings.Trim(strings.TrimSpace(cfg.APIKey), `"'`)
	if key == "" {
		return nil, errors.New("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	chain := cfg.Models
	if len(chain) == 0 {
		chain = DefaultModels
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Classifier{
		models:  client.Models,
		logger:  cfg.Logger.With().Str("component", "gemini").Logger(),
		chain:   chain,
		timeout: timeout,
	}, nil
}

// Classify labels one batch. Models are tried in order; a quota error moves to
// the next model and any other error is returned at once. When every model is
// out of quota the result is a *domain.QuotaError.
func (c *Classifier) Classify(ctx context.Context, batch []domain.ClassificationRequest) ([]domain.Classification, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	items := make([]requestItem, len(batch))
	for i, r := range batch {
		items[i] = requestItem{ID: r.ID, RawText: r.RawText}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode batch: %w", err)
	}
	prompt := "Transactions to categorize:\n" + string(payload)

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema,
		Temperature:       genai.Ptr[float32](0),
	}

	quota := &domain.QuotaError{}
	for _, model := range c.chain {
		text, err := c.generate(ctx, model, prompt, config)
		if err == nil {
			return decodeResults(text)
		}

		retryAfter, isQuota := quotaDetails(err)
		if !isQuota {
			return nil, fmt.Errorf("gemini %s: %w", model, err)
		}

		c.logger.Warn().
			Err(err).
			Str("model", model).
			Dur("retry_after", retryAfter).
			Msg("model quota exhausted, trying next")

		quota.Err = err
		if retryAfter > quota.RetryAfter {
			quota.RetryAfter = retryAfter
		}
	}

	return nil, quota
}

func (c *Classifier) generate(ctx context.Context, model, prompt string, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrMalformedClassification)
	}

	return text, nil
}

func decodeResults(text string) ([]domain.Classification, error) {
	var items []resultItem
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &items); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedClassification, err)
	}

	out := make([]domain.Classification, len(items))
	for i, it := range items {
		out[i] = domain.Classification{
			ID:             it.ID,
			CleanName:      strings.TrimSpace(it.CleanName),
			Category:       strings.TrimSpace(it.Category),
			IsSubscription: it.IsSubscription,
		}
	}

	return out, nil
}

// quotaDetails reports whether err is a quota rejection and how long the
// service asked to wait.
func quotaDetails(err error) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	if apiErr.Code != http.StatusTooManyRequests && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return 0, false
	}

	var wait time.Duration
	for _, detail := range apiErr.Details {
		typ, _ := detail["@type"].(string)
		if !strings.HasSuffix(typ, "RetryInfo") {
			continue
		}
		if delay, ok := detail["retryDelay"].(string); ok {
			if d, err := time.ParseDuration(delay); err == nil {
				wait = d
			}
		}
	}

	return wait, true
}

// cleanModelJSON strips Markdown fences a model may wrap around its JSON.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = s[start : end+1]
		}
	}

	return s
}
