package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"recording-ingest/config"
)

// Client checks whether a voice-AI credential is live and whether the
// configured assistant identity is reachable. It fails independently of
// the upload path.
type Client struct {
	http        *resty.Client
	assistantID string
}

type Health struct {
	Healthy            bool
	Assistants         int
	AssistantReachable bool
}

func NewClient(cfg config.Vapi) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(10 * time.Second)

	return &Client{
		http:        client,
		assistantID: cfg.AssistantID,
	}
}

func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/assistant")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return &Health{}, fmt.Errorf("assistant list returned %s", resp.Status())
	}

	var assistants []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &assistants); err != nil {
		return &Health{}, fmt.Errorf("unexpected assistant list payload: %w", err)
	}

	health := &Health{
		Healthy:    true,
		Assistants: len(assistants),
	}

	if c.assistantID != "" {
		resp, err := c.http.R().SetContext(ctx).Get("/assistant/" + c.assistantID)
		if err != nil {
			return health, err
		}
		health.AssistantReachable = resp.IsSuccess()
	}

	return health, nil
}
