// Package notifier implements a client sending order summaries to a Telegram chat.
package notifier

import (
	"context"
	"errors"
	"net/url"

	clientErrors "github.com/danilovkiri/dk-go-refill/internal/client/errors"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const service = "telegram"

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Client defines attributes of a struct available to its methods.
type Client struct {
	client *resty.Client
	cfg    *config.NotifierConfig
	log    *zerolog.Logger
}

// InitClient initializes a resty client for the Bot API.
func InitClient(cfg *config.NotifierConfig, log *zerolog.Logger) *Client {
	botClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	log.Info().Msg("telegram client initialized")
	return &Client{client: botClient, cfg: cfg, log: log}
}

// Notify posts text to the configured chat.
func (c *Client) Notify(ctx context.Context, text string) error {
	response, err := c.client.R().SetContext(ctx).
		SetPathParams(map[string]string{"token": c.cfg.BotToken}).
		SetBody(sendMessageRequest{ChatID: c.cfg.ChatID, Text: text}).
		Post("/bot{token}/sendMessage")
	if err != nil {
		// the request URL carries the bot token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return &clientErrors.UpstreamError{Service: service, Err: err}
	}
	if response.IsError() {
		return &clientErrors.UpstreamError{Service: service, Status: response.StatusCode(), Body: response.String()}
	}
	return nil
}
