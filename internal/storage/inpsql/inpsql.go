// Package inpsql implements order, token and maintenance flag storage on PostgreSQL.
package inpsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/danilovkiri/dk-go-refill/internal/models/modelstorage"
	"github.com/danilovkiri/dk-go-refill/internal/storage"
	storageErrors "github.com/danilovkiri/dk-go-refill/internal/storage/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
)

var _ storage.Storage = (*Storage)(nil)

// Storage holds one handle per logical store. No transaction spans them.
type Storage struct {
	Cfg      *config.StorageConfig
	OrdersDB *sql.DB
	TokenDB  *sql.DB
	TechDB   *sql.DB
	log      *zerolog.Logger
}

// InitStorage opens the DB handles and makes sure the tables exist.
func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	if cfg.OrdersDSN == "" {
		return nil, errors.New("orders DB DSN is not set")
	}
	if cfg.TokenDSN == "" {
		return nil, errors.New("token DB DSN is not set")
	}
	ordersDB, err := sql.Open("pgx", cfg.OrdersDSN)
	if err != nil {
		return nil, err
	}
	tokenDB, err := sql.Open("pgx", cfg.TokenDSN)
	if err != nil {
		ordersDB.Close()
		return nil, err
	}
	techDB := ordersDB
	if cfg.TechDSN != "" && cfg.TechDSN != cfg.OrdersDSN {
		techDB, err = sql.Open("pgx", cfg.TechDSN)
		if err != nil {
			ordersDB.Close()
			tokenDB.Close()
			return nil, err
		}
	}
	st := NewStorage(ordersDB, tokenDB, techDB, cfg, log)
	if err := st.createTables(ctx); err != nil {
		st.Close()
		return nil, err
	}
	log.Info().Msg("PSQL DB connections were established")
	return st, nil
}

// NewStorage wraps already opened handles.
func NewStorage(ordersDB, tokenDB, techDB *sql.DB, cfg *config.StorageConfig, log *zerolog.Logger) *Storage {
	return &Storage{
		Cfg:      cfg,
		OrdersDB: ordersDB,
		TokenDB:  tokenDB,
		TechDB:   techDB,
		log:      log,
	}
}

// Close closes every distinct handle.
func (s *Storage) Close() error {
	var firstErr error
	seen := map[*sql.DB]bool{}
	for _, db := range []*sql.DB{s.OrdersDB, s.TokenDB, s.TechDB} {
		if db == nil || seen[db] {
			continue
		}
		seen[db] = true
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// UpsertOrder replaces the order stored under the same id or inserts a new one.
func (s *Storage) UpsertOrder(ctx context.Context, order modelstorage.OrderStorageEntry) error {
	upsertStmt, err := s.OrdersDB.PrepareContext(ctx, `INSERT INTO orders (id, platform, steam_id, pubg_uid, amount, discounted_amount, status, created_at, qr_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			platform = EXCLUDED.platform,
			steam_id = EXCLUDED.steam_id,
			pubg_uid = EXCLUDED.pubg_uid,
			amount = EXCLUDED.amount,
			discounted_amount = EXCLUDED.discounted_amount,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			qr_payload = EXCLUDED.qr_payload`)
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer upsertStmt.Close()
	chanEr := make(chan error, 1)
	go func() {
		_, err := upsertStmt.ExecContext(ctx, order.ID, order.Platform, order.SteamID, order.PubgUID,
			order.Amount, order.DiscountedAmount, order.Status, order.CreatedAt, order.QRPayload)
		if err != nil {
			chanEr <- classify(err)
			return
		}
		chanEr <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("upserting order failed for %s", order.ID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		if methodErr != nil {
			s.log.Error().Err(methodErr).Msg(fmt.Sprintf("upserting order failed for %s", order.ID))
			return methodErr
		}
		s.log.Info().Msg(fmt.Sprintf("upserting order done for %s", order.ID))
		return nil
	}
}

// GetOrder retrieves a stored order by its gateway id.
func (s *Storage) GetOrder(ctx context.Context, id string) (*modelstorage.OrderStorageEntry, error) {
	selectStmt, err := s.OrdersDB.PrepareContext(ctx, "SELECT id, platform, steam_id, pubg_uid, amount, discounted_amount, status, created_at, qr_payload FROM orders WHERE id = $1")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan *modelstorage.OrderStorageEntry, 1)
	chanEr := make(chan error, 1)
	go func() {
		var queryOutput modelstorage.OrderStorageEntry
		err := scanRow(selectStmt.QueryRowContext(ctx, id), &queryOutput.ID, &queryOutput.Platform, &queryOutput.SteamID,
			&queryOutput.PubgUID, &queryOutput.Amount, &queryOutput.DiscountedAmount, &queryOutput.Status,
			&queryOutput.CreatedAt, &queryOutput.QRPayload)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err, ID: id}
			default:
				chanEr <- err
			}
			return
		}
		chanOk <- &queryOutput
	}()

	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("getting order failed for %s", id))
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("getting order failed for %s", id))
		return nil, methodErr
	case order := <-chanOk:
		return order, nil
	}
}

// GetAccessToken reads the gateway token stored under the configured name.
func (s *Storage) GetAccessToken(ctx context.Context) (string, error) {
	selectStmt, err := s.TokenDB.PrepareContext(ctx, "SELECT name, value FROM tokens WHERE name = $1")
	if err != nil {
		return "", &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan string, 1)
	chanEr := make(chan error, 1)
	go func() {
		var queryOutput modelstorage.TokenStorageEntry
		err := scanRow(selectStmt.QueryRowContext(ctx, s.Cfg.TokenName), &queryOutput.Name, &queryOutput.Value)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err, ID: s.Cfg.TokenName}
			default:
				chanEr <- err
			}
			return
		}
		if queryOutput.Value == "" {
			chanEr <- &storageErrors.NotFoundError{ID: s.Cfg.TokenName}
			return
		}
		chanOk <- queryOutput.Value
	}()

	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("getting access token failed")
		return "", &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("getting access token failed")
		return "", methodErr
	case token := <-chanOk:
		return token, nil
	}
}

// GetTechStatus reads the maintenance flag. A missing row means maintenance is off.
func (s *Storage) GetTechStatus(ctx context.Context) (bool, error) {
	var tech bool
	err := scanRow(s.TechDB.QueryRowContext(ctx, "SELECT tech FROM tech WHERE id = $1", s.Cfg.TechRowID), &tech)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return false, &storageErrors.ContextTimeoutExceededError{Err: err}
	case err != nil:
		return false, err
	}
	return tech, nil
}

// scanRow separates query failures from scan failures. sql.ErrNoRows is returned unwrapped.
func scanRow(row *sql.Row, dest ...interface{}) error {
	if err := row.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return classify(err)
	}
	err := row.Scan(dest...)
	switch {
	case err == nil || errors.Is(err, sql.ErrNoRows):
		return err
	default:
		return &storageErrors.ScanningPSQLError{Err: err}
	}
}

// classify wraps a driver error into a storage error.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return &storageErrors.UnavailableError{Err: err}
	}
	return &storageErrors.ExecutionPSQLError{Err: err}
}

func (s *Storage) createTables(ctx context.Context) error {
	schema := []struct {
		db    *sql.DB
		query string
	}{
		{s.OrdersDB, `CREATE TABLE IF NOT EXISTS orders (
		id                TEXT           PRIMARY KEY,
		platform          TEXT           NOT NULL,
		steam_id          TEXT           NOT NULL DEFAULT '',
		pubg_uid          TEXT           NOT NULL DEFAULT '',
		amount            NUMERIC(12, 2) NOT NULL,
		discounted_amount NUMERIC(12, 2) NOT NULL,
		status            TEXT           NOT NULL,
		created_at        TIMESTAMPTZ    NOT NULL,
		qr_payload        TEXT
	);`},
		{s.TokenDB, `CREATE TABLE IF NOT EXISTS tokens (
		name  TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`},
		{s.TechDB, `CREATE TABLE IF NOT EXISTS tech (
		id   INTEGER PRIMARY KEY,
		tech BOOLEAN NOT NULL DEFAULT FALSE
	);`},
	}
	for _, subquery := range schema {
		if _, err := subquery.db.ExecContext(ctx, subquery.query); err != nil {
			return err
		}
	}
	return nil
}
