package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
)

const sendSMSPath = "/service/message/sendsmsmessage"

type Client struct {
	ApiKey string
	Sender string // опционально
	DryRun bool   // dry-run режим

	http     *resty.Client
	attempts uint
	delay    time.Duration
}

type SendSMSResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

// NewClientWithOptions builds a Mobizon client against baseURL
// (e.g. https://api.mobizon.kz).
func NewClientWithOptions(baseURL, apiKey, sender string, dryRun bool) *Client {
	return &Client{
		ApiKey:   apiKey,
		Sender:   sender,
		DryRun:   dryRun,
		http:     resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
}

// SendSMS delivers text through Mobizon (or only logs it in dry-run).
// Transport failures and 5xx answers are retried with backoff.
func (c *Client) SendSMS(ctx context.Context, to, text string) (*SendSMSResponse, error) {
	if c.DryRun || c.ApiKey == "" || c.ApiKey == "dry-run" {
		log.Printf("[sms][mobizon][dry-run] to=%s sender=%q text=%q", to, c.Sender, text)
		return &SendSMSResponse{Code: 0}, nil
	}

	form := map[string]string{
		"apiKey":    c.ApiKey,
		"recipient": to,
		"text":      text,
	}
	if c.Sender != "" {
		form["from"] = c.Sender
	}

	var result SendSMSResponse
	err := retry.Do(
		func() error {
			resp, err := c.http.R().
				SetContext(ctx).
				SetFormData(form).
				Post(sendSMSPath)
			if err != nil {
				return fmt.Errorf("send SMS request: %w", err)
			}
			if resp.StatusCode() >= 500 {
				return fmt.Errorf("mobizon http status %d", resp.StatusCode())
			}
			if err := json.Unmarshal(resp.Body(), &result); err != nil {
				return retry.Unrecoverable(fmt.Errorf("parse response (status %d): %w", resp.StatusCode(), err))
			}
			if result.Code != 0 {
				return retry.Unrecoverable(fmt.Errorf("mobizon returned error code %d: %s", result.Code, result.Message))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	log.Printf("[sms][mobizon][send] ok to=%s messageID=%s", to, result.Data.MessageID)
	return &result, nil
}
