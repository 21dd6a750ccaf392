// Package modeldto provides types for API request and response bodies.
package modeldto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supported platforms.
const (
	PlatformSteam = "steam"
	PlatformPUBG  = "pubg"
)

type (
	// NewOrder is the raw order request as sent by the client.
	NewOrder struct {
		Platform string           `json:"platform"`
		SteamID  string           `json:"steamId,omitempty"`
		PubgUID  string           `json:"pubgUid,omitempty"`
		Amount   *decimal.Decimal `json:"amount"`
	}
	// OrderCreated is returned once a payment order is registered.
	OrderCreated struct {
		OK          bool   `json:"ok"`
		QRPayload   string `json:"qrPayload"`
		OperationID string `json:"operation_id"`
	}
	// Order is the stored order view.
	Order struct {
		ID               string          `json:"id"`
		Platform         string          `json:"platform"`
		SteamID          string          `json:"steamId"`
		PubgUID          string          `json:"pubgUid"`
		Amount           decimal.Decimal `json:"amount"`
		DiscountedAmount decimal.Decimal `json:"discountedAmount"`
		Status           string          `json:"status"`
		CreatedAt        time.Time       `json:"createdAt"`
		QRPayload        *string         `json:"qrPayload"`
	}
	// TechStatus reports whether maintenance mode is on.
	TechStatus struct {
		Tech bool `json:"tech"`
	}
	// ErrorResponse carries a failure message and, for identity rejections, the provider code.
	ErrorResponse struct {
		Error     string `json:"error"`
		ErrorCode *int   `json:"error_code,omitempty"`
	}
)
