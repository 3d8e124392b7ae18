package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/packwrap/internal/domain/models"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-3-haiku-20240307"
	maxTokens  = 512
)

// Client defines the interface for AI text processing.
type Client interface {
	// ExtractOrder reads a customer message and returns the requested fields.
	// Fields it cannot find stay empty.
	ExtractOrder(ctx context.Context, text string, fields []string) (models.ParsedOrder, error)
}

type anthropicClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string) Client {
	return newClient(apiKey, apiURL)
}

func newClient(apiKey, url string) *anthropicClient {
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	return &anthropicClient{httpClient: client, url: url}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `You read delivery orders sent by customers of a packaging shop in Bangladesh.
Messages mix Bengali and English and rarely use labels.

Extract only these fields: %s.

RULES:
- name: the customer's name.
- phone: a Bangladeshi mobile number in 11-digit local form (01XXXXXXXXX).
- address: the full delivery address as written.
- size: the product size/color description as written.
- pieces: total number of pieces as an integer.
- codAmount: the cash on delivery total as a number, without currency.
- Use null for anything the message does not state. Never guess.
- Output ONLY a JSON object with the keys name, phone, address, size, pieces, codAmount.`

func (c *anthropicClient) ExtractOrder(ctx context.Context, text string, fields []string) (models.ParsedOrder, error) {
	if len(fields) == 0 {
		return models.ParsedOrder{}, nil
	}

	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    fmt.Sprintf(systemPrompt, strings.Join(fields, ", ")),
		Messages: []Message{
			{Role: "user", Content: text},
			// Prefill the assistant response to force JSON
			{Role: "assistant", Content: "{"},
		},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(c.url)
	if err != nil {
		return models.ParsedOrder{}, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return models.ParsedOrder{}, fmt.Errorf("anthropic api error: %s", resp.String())
	}
	if len(respBody.Content) == 0 {
		return models.ParsedOrder{}, fmt.Errorf("empty response from ai")
	}

	// Reconstruct the full JSON since we prefilled the opening brace
	responseText := cleanJSON("{" + respBody.Content[0].Text)

	var extracted struct {
		Name      *string  `json:"name"`
		Phone     *string  `json:"phone"`
		Address   *string  `json:"address"`
		Size      *string  `json:"size"`
		Pieces    *float64 `json:"pieces"`
		CODAmount *float64 `json:"codAmount"`
	}
	if err := json.Unmarshal([]byte(responseText), &extracted); err != nil {
		return models.ParsedOrder{}, fmt.Errorf("failed to unmarshal ai response: %w", err)
	}

	order := models.ParsedOrder{
		Name:      deref(extracted.Name),
		Phone:     deref(extracted.Phone),
		Address:   deref(extracted.Address),
		Size:      deref(extracted.Size),
		CODAmount: extracted.CODAmount,
	}
	if extracted.Pieces != nil && *extracted.Pieces > 0 {
		pieces := int(*extracted.Pieces)
		order.Pieces = &pieces
	}
	return order, nil
}

// cleanJSON strips markdown code fences Claude sometimes wraps around JSON.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
