package models

// CourierCredentials are the Steadfast API keys kept in the vault.
type CourierCredentials struct {
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
}

// Complete reports whether both keys are present.
func (c CourierCredentials) Complete() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// CourierOrder is the create-order payload expected by the courier.
type CourierOrder struct {
	Invoice          string  `json:"invoice"`
	RecipientName    string  `json:"recipient_name"`
	RecipientPhone   string  `json:"recipient_phone"`
	RecipientAddress string  `json:"recipient_address"`
	CODAmount        float64 `json:"cod_amount"`
	Note             string  `json:"note,omitempty"`
}

// CourierProxyRequest is the body accepted by the courier proxy endpoints.
type CourierProxyRequest struct {
	APIKey    string         `json:"apiKey"`
	SecretKey string         `json:"secretKey"`
	Order     map[string]any `json:"order,omitempty"`
}

// Credentials extracts the caller-supplied keys.
func (r CourierProxyRequest) Credentials() CourierCredentials {
	return CourierCredentials{APIKey: r.APIKey, SecretKey: r.SecretKey}
}

// ProxyError is the uniform error envelope returned by the courier proxy.
type ProxyError struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
