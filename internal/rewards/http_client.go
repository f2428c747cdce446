package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type HTTPConfig struct {
	BaseURL     string
	APIVersion  string
	TokenHeader string
}

// HTTPClient talks to one shop's admin API with that shop's access token.
type HTTPClient struct {
	Shop        string
	AccessToken string
	cfg         HTTPConfig
	http        *http.Client
}

type discountRequest struct {
	DiscountCode discountPayload `json:"discount_code"`
}

type discountPayload struct {
	Code       string  `json:"code"`
	ValueType  string  `json:"value_type"`
	Value      string  `json:"value,omitempty"`
	VariantID  string  `json:"entitled_variant_id,omitempty"`
	StartsAt   string  `json:"starts_at"`
	EndsAt     string  `json:"ends_at,omitempty"`
	UsageLimit int     `json:"usage_limit"`
	OncePer    bool    `json:"once_per_customer"`
	Target     *string `json:"target_type,omitempty"`
}

type discountResponse struct {
	DiscountCode struct {
		ID json.Number `json:"id"`
	} `json:"discount_code"`
	Errors any `json:"errors"`
}

func NewHTTPClient(cfg HTTPConfig, shop, accessToken string) *HTTPClient {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-07"
	}
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = "X-Shopify-Access-Token"
	}
	return &HTTPClient{
		Shop:        shop,
		AccessToken: accessToken,
		cfg:         cfg,
		// The caller's context carries the real deadline.
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) endpoint() string {
	base := c.cfg.BaseURL
	if base == "" {
		base = "https://" + c.Shop
	}
	return fmt.Sprintf("%s/admin/api/%s/discount_codes.json", base, c.cfg.APIVersion)
}

func (c *HTTPClient) CreateReward(ctx context.Context, code string, sem Semantics, cons Constraints) (string, error) {
	if c.AccessToken == "" {
		return "", errors.New("reward client has no access token")
	}
	payload := discountPayload{
		Code:       code,
		ValueType:  string(sem.Kind),
		VariantID:  sem.VariantID,
		StartsAt:   cons.StartsAt.UTC().Format(time.RFC3339),
		UsageLimit: cons.UsageLimit,
		OncePer:    true,
	}
	if sem.Kind == KindPercentage || sem.Kind == KindFixedAmount {
		payload.Value = sem.Value.Neg().StringFixed(2)
	}
	if sem.Kind == KindFreeShipping {
		target := "shipping_line"
		payload.Target = &target
	}
	if !cons.EndsAt.IsZero() {
		payload.EndsAt = cons.EndsAt.UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(discountRequest{DiscountCode: payload})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.cfg.TokenHeader, c.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reward service status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	var parsed discountResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode reward response: %w", err)
	}
	id := parsed.DiscountCode.ID.String()
	if id == "" {
		return "", fmt.Errorf("reward service returned no id: %v", parsed.Errors)
	}
	return id, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
