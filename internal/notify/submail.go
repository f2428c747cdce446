// Package notify tells winners about their reward code by SMS.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("submail config missing")

type SubmailClient struct {
	AppID     string
	AppKey    string
	ProjectID string
	Endpoint  string
	HTTP      *http.Client
}

type SubmailResponse struct {
	Status string `json:"status"`
	SendID string `json:"send_id"`
	Fee    int    `json:"fee"`
	Code   string `json:"code"`
	Msg    string `json:"msg"`
}

func NewSubmailClient(appID, appKey, projectID string) *SubmailClient {
	return &SubmailClient{
		AppID:     appID,
		AppKey:    appKey,
		ProjectID: projectID,
		Endpoint:  "https://api-v4.mysubmail.com/sms/xsend.json",
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *SubmailClient) Configured() bool {
	return c != nil && c.AppID != "" && c.AppKey != "" && c.ProjectID != ""
}

// NotifyWinner sends the winner template with the prize name and code as
// template variables.
func (c *SubmailClient) NotifyWinner(ctx context.Context, phone, prizeName, code string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return errors.New("phone is empty")
	}
	vars, err := json.Marshal(map[string]string{"prize": prizeName, "code": code})
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("appid", c.AppID)
	form.Set("to", phone)
	form.Set("project", c.ProjectID)
	form.Set("signature", c.AppKey)
	form.Set("vars", string(vars))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var parsed SubmailResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("submail response: %w", err)
	}
	if parsed.Status != "success" {
		return fmt.Errorf("submail %s: %s", parsed.Code, parsed.Msg)
	}
	return nil
}
