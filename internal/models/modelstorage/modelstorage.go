// Package modelstorage provides types for querying relational DB.
package modelstorage

import (
	"database/sql"
	"time"
)

type OrderStorageEntry struct {
	ID               string         `db:"id"`
	Platform         string         `db:"platform"`
	SteamID          string         `db:"steam_id"`
	PubgUID          string         `db:"pubg_uid"`
	Amount           string         `db:"amount"`
	DiscountedAmount string         `db:"discounted_amount"`
	Status           string         `db:"status"`
	CreatedAt        time.Time      `db:"created_at"`
	QRPayload        sql.NullString `db:"qr_payload"`
}

type TokenStorageEntry struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}
