package steadfast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/packwrap/internal/config"
	"github.com/mamadbah2/packwrap/internal/domain/models"
)

const (
	balancePath     = "/get_balance"
	placeOrderPath  = "/place-order"
	createOrderPath = "/create_order"
)

// ErrMissingCredentials is returned before any request is sent without keys.
var ErrMissingCredentials = errors.New("steadfast: api key and secret key are required")

// Client exposes the Steadfast courier operations used by the application.
type Client interface {
	GetBalance(ctx context.Context, creds models.CourierCredentials) (map[string]any, error)
	PlaceOrder(ctx context.Context, creds models.CourierCredentials, order any) (map[string]any, error)
}

// UpstreamError carries the courier's own explanation of a failed call.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a courier client. Credentials travel per request because
// every account brings its own keys.
func NewClient(cfg config.CourierConfig) *APIClient {
	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &APIClient{httpClient: restyClient}
}

// GetBalance reads the account balance. A successful call also proves the keys are valid.
func (c *APIClient) GetBalance(ctx context.Context, creds models.CourierCredentials) (map[string]any, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}

	resp, err := c.request(ctx, creds).Get(balancePath)
	if err != nil {
		return nil, fmt.Errorf("steadfast balance: %w", err)
	}
	return decode(resp)
}

// PlaceOrder creates a consignment, trying the current endpoint first and the
// legacy one when it fails.
func (c *APIClient) PlaceOrder(ctx context.Context, creds models.CourierCredentials, order any) (map[string]any, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}

	out, err := c.post(ctx, creds, placeOrderPath, order)
	if err == nil {
		return out, nil
	}

	out, legacyErr := c.post(ctx, creds, createOrderPath, order)
	if legacyErr != nil {
		return nil, legacyErr
	}
	return out, nil
}

func (c *APIClient) post(ctx context.Context, creds models.CourierCredentials, path string, body any) (map[string]any, error) {
	resp, err := c.request(ctx, creds).SetBody(body).Post(path)
	if err != nil {
		return nil, fmt.Errorf("steadfast %s: %w", path, err)
	}
	return decode(resp)
}

func (c *APIClient) request(ctx context.Context, creds models.CourierCredentials) *resty.Request {
	return c.httpClient.R().
		SetContext(ctx).
		SetHeader("Api-Key", creds.APIKey).
		SetHeader("Secret-Key", creds.SecretKey)
}

// decode parses the upstream body, keeping non-JSON text under "raw".
func decode(resp *resty.Response) (map[string]any, error) {
	out := map[string]any{}
	if err := json.Unmarshal(resp.Body(), &out); err != nil || out == nil {
		out = map[string]any{"raw": string(resp.Body())}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &UpstreamError{Status: resp.StatusCode(), Message: upstreamMessage(out, resp.StatusCode())}
	}
	return out, nil
}

func upstreamMessage(body map[string]any, status int) string {
	for _, field := range []string{"message", "error"} {
		if s, ok := body[field].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
