// Package gateway implements a client for the payment gateway API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	clientErrors "github.com/danilovkiri/dk-go-refill/internal/client/errors"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/danilovkiri/dk-go-refill/internal/storage"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt"
	"github.com/rs/zerolog"
)

const service = "payment gateway"

type (
	createOrderRequest struct {
		MerchantOrderID string `json:"merchantOrderId"`
		PaymentAmount   int64  `json:"paymentAmount"`
		OrderCurrency   string `json:"orderCurrency"`
		TspID           int    `json:"tspId"`
		Description     string `json:"description"`
		CallbackURL     string `json:"callbackUrl"`
	}
	orderResponse struct {
		Order *struct {
			ID      orderID `json:"id"`
			Payload string  `json:"payload"`
		} `json:"order"`
	}
)

// orderID accepts both string and numeric identifiers.
type orderID string

func (id *orderID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = orderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = orderID(n.String())
	return nil
}

// Client defines attributes of a struct available to its methods.
type Client struct {
	client *resty.Client
	cfg    *config.GatewayConfig
	tokens storage.TokenRepository
	log    *zerolog.Logger
}

// InitClient initializes a resty client for the gateway.
func InitClient(cfg *config.GatewayConfig, tokens storage.TokenRepository, log *zerolog.Logger) *Client {
	gatewayClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	log.Info().Msg("payment gateway client initialized")
	return &Client{client: gatewayClient, cfg: cfg, tokens: tokens, log: log}
}

// CreateOrder registers a payment order for the amount given in minor units and returns the gateway order id.
func (c *Client) CreateOrder(ctx context.Context, description string, minorAmount int64) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}
	body := createOrderRequest{
		MerchantOrderID: c.cfg.MerchantOrderID,
		PaymentAmount:   minorAmount,
		OrderCurrency:   c.cfg.Currency,
		TspID:           c.cfg.TspID,
		Description:     description,
		CallbackURL:     c.cfg.CallbackURL,
	}
	var result orderResponse
	response, err := c.client.R().SetContext(ctx).SetAuthToken(token).SetBody(body).
		ExpectContentType("application/json").
		SetResult(&result).
		Post("/order")
	if err != nil {
		c.log.Err(err).Msg("gateway order creation failed")
		return "", &clientErrors.UpstreamError{Service: service, Err: err}
	}
	if response.IsError() {
		return "", &clientErrors.UpstreamError{Service: service, Status: response.StatusCode(), Body: response.String()}
	}
	if result.Order == nil || result.Order.ID == "" {
		return "", &clientErrors.UpstreamError{Service: service, Status: response.StatusCode(), Body: response.String(),
			Err: fmt.Errorf("order id missing in response: %s", response.String())}
	}
	c.log.Info().Msg(fmt.Sprintf("gateway order %s created for %d", result.Order.ID, minorAmount))
	return string(result.Order.ID), nil
}

// GetPaymentCode requests the QR payment payload of a gateway order.
func (c *Client) GetPaymentCode(ctx context.Context, id string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}
	var result orderResponse
	response, err := c.client.R().SetContext(ctx).SetAuthToken(token).
		SetPathParams(map[string]string{"orderID": id}).
		ExpectContentType("application/json").
		SetResult(&result).
		Post("/order/qrcData/{orderID}")
	if err != nil {
		c.log.Err(err).Msg(fmt.Sprintf("gateway payment code retrieval failed for order %s", id))
		return "", &clientErrors.UpstreamError{Service: service, Err: err}
	}
	if response.IsError() {
		return "", &clientErrors.UpstreamError{Service: service, Status: response.StatusCode(), Body: response.String()}
	}
	if result.Order == nil || result.Order.Payload == "" {
		return "", &clientErrors.UpstreamError{Service: service, Status: response.StatusCode(), Body: response.String(),
			Err: fmt.Errorf("payment payload missing for order %s", id)}
	}
	return result.Order.Payload, nil
}

// accessToken reads the bearer token anew for every call.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	token, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("access token: %w", err)
	}
	c.warnIfExpired(token)
	return token, nil
}

// warnIfExpired logs tokens that are JWTs past their expiry. Opaque tokens are ignored.
func (c *Client) warnIfExpired(token string) {
	claims := &jwt.StandardClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return
	}
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		c.log.Warn().Err(errors.New("token expired")).
			Time("expired_at", time.Unix(claims.ExpiresAt, 0)).
			Msg("gateway access token looks expired")
	}
}
