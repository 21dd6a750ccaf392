// Package checker implements a client for the Steam login verification service.
package checker

import (
	"context"
	"encoding/json"
	"fmt"

	clientErrors "github.com/danilovkiri/dk-go-refill/internal/client/errors"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const service = "login checker"

type (
	checkRequest struct {
		Username string `json:"username"`
		Amount   int    `json:"amount"`
	}
	checkResponse struct {
		CanRefill *bool `json:"can_refill"`
		ErrorCode int   `json:"error_code"`
	}
)

// Client defines attributes of a struct available to its methods.
type Client struct {
	client *resty.Client
	log    *zerolog.Logger
}

// InitClient initializes a resty client for the checker.
func InitClient(cfg *config.CheckerConfig, log *zerolog.Logger) *Client {
	checkerClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	log.Info().Msg("login checker client initialized")
	return &Client{client: checkerClient, log: log}
}

// CheckLogin asks whether the login can be refilled. A refusal is reported as *errors.RejectedError,
// a reply without an explicit can_refill verdict as *errors.UpstreamError.
func (c *Client) CheckLogin(ctx context.Context, login string) error {
	// amount=1 is a probe, the real sum is not checked
	response, err := c.client.R().SetContext(ctx).
		SetBody(checkRequest{Username: login, Amount: 1}).
		Post("/check_login")
	if err != nil {
		c.log.Err(err).Msg(fmt.Sprintf("login check failed for %s", login))
		return &clientErrors.UpstreamError{Service: service, Err: err}
	}
	if response.StatusCode() >= 500 {
		return &clientErrors.UpstreamError{Service: service, Status: response.StatusCode(), Body: response.String()}
	}
	// the body is decoded whatever the Content-Type says
	var result checkResponse
	if err := json.Unmarshal(response.Body(), &result); err != nil || result.CanRefill == nil {
		c.log.Error().Msg(fmt.Sprintf("malformed login check reply for %s: status %d", login, response.StatusCode()))
		return &clientErrors.UpstreamError{Service: service, Status: response.StatusCode(), Body: response.String()}
	}
	if !*result.CanRefill {
		code := result.ErrorCode
		if code == 0 {
			code = clientErrors.DefaultRejectionCode
		}
		c.log.Info().Msg(fmt.Sprintf("login %s rejected with code %d", login, code))
		return &clientErrors.RejectedError{Login: login, Code: code}
	}
	return nil
}
