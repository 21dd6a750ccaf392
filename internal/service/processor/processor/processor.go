// Package processor provides the order workflow between the API handlers and the upstream services.
package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	clientErrors "github.com/danilovkiri/dk-go-refill/internal/client/errors"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/danilovkiri/dk-go-refill/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-refill/internal/models/modelstorage"
	"github.com/danilovkiri/dk-go-refill/internal/service/processor"
	serviceErrors "github.com/danilovkiri/dk-go-refill/internal/service/processor/errors"
	"github.com/danilovkiri/dk-go-refill/internal/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StatusInProgress is the status of every freshly created order.
const StatusInProgress = "В процессе"

var hundred = decimal.NewFromInt(100)

var _ processor.Processor = (*Processor)(nil)

// Processor defines attributes of a struct available to its methods.
type Processor struct {
	orders   storage.OrderRepository
	gateway  processor.Gateway
	checker  processor.Checker
	notifier processor.Notifier
	cfg      *config.OrderConfig
	log      *zerolog.Logger
	now      func() time.Time
}

// InitService initializes the order workflow.
func InitService(orders storage.OrderRepository, gateway processor.Gateway, checker processor.Checker, notifier processor.Notifier, cfg *config.OrderConfig, log *zerolog.Logger) (*Processor, error) {
	if orders == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil order storage was passed to service initializer"}
	}
	if gateway == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil gateway was passed to service initializer"}
	}
	if checker == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil checker was passed to service initializer"}
	}
	if notifier == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil notifier was passed to service initializer"}
	}
	if cfg == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil order config was passed to service initializer"}
	}
	if log == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil logger was passed to service initializer"}
	}
	return &Processor{
		orders:   orders,
		gateway:  gateway,
		checker:  checker,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}, nil
}

// validOrder is an order request that passed validation. Only the identifier of its platform is set.
type validOrder struct {
	platform string
	steamID  string
	pubgUID  string
	amount   decimal.Decimal
}

func (o validOrder) accountID() string {
	if o.platform == modeldto.PlatformSteam {
		return o.steamID
	}
	return o.pubgUID
}

// CreateOrder registers a payment order with the gateway, fetches its QR payload and stores the order.
func (proc *Processor) CreateOrder(ctx context.Context, order modeldto.NewOrder) (*modeldto.OrderCreated, error) {
	valid, err := proc.validate(order)
	if err != nil {
		return nil, err
	}
	return proc.create(ctx, valid, Discount(valid.platform, valid.amount))
}

// PlaceOrder verifies the account, notifies the operators and then creates the order.
func (proc *Processor) PlaceOrder(ctx context.Context, order modeldto.NewOrder) (*modeldto.OrderCreated, error) {
	valid, err := proc.validate(order)
	if err != nil {
		return nil, err
	}
	if valid.platform == modeldto.PlatformSteam {
		if err := proc.checker.CheckLogin(ctx, valid.steamID); err != nil {
			var rejected *clientErrors.RejectedError
			if errors.As(err, &rejected) {
				return nil, err
			}
			return nil, &serviceErrors.VerificationError{Err: err}
		}
	}
	discounted := Discount(valid.platform, valid.amount)
	// best-effort, a lost notification never blocks the order
	if err := proc.notifier.Notify(ctx, OrderMessage(valid.platform, valid.accountID(), discounted)); err != nil {
		proc.log.Warn().Err(err).Msg(fmt.Sprintf("order notification failed for %s", valid.accountID()))
	}
	return proc.create(ctx, valid, discounted)
}

// GetOrder returns a stored order.
func (proc *Processor) GetOrder(ctx context.Context, id string) (*modeldto.Order, error) {
	entry, err := proc.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(entry.Amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount of %s: %w", id, err)
	}
	discounted, err := decimal.NewFromString(entry.DiscountedAmount)
	if err != nil {
		return nil, fmt.Errorf("stored discounted amount of %s: %w", id, err)
	}
	result := &modeldto.Order{
		ID:               entry.ID,
		Platform:         entry.Platform,
		SteamID:          entry.SteamID,
		PubgUID:          entry.PubgUID,
		Amount:           amount,
		DiscountedAmount: discounted,
		Status:           entry.Status,
		CreatedAt:        entry.CreatedAt,
	}
	if entry.QRPayload.Valid {
		payload := entry.QRPayload.String
		result.QRPayload = &payload
	}
	return result, nil
}

// create runs the gateway and storage steps. A gateway order is not cancelled if a later step fails.
func (proc *Processor) create(ctx context.Context, order validOrder, discounted decimal.Decimal) (*modeldto.OrderCreated, error) {
	minorAmount := order.amount.Mul(hundred).IntPart()
	orderID, err := proc.gateway.CreateOrder(ctx, "Пополнение "+order.platform, minorAmount)
	if err != nil {
		return nil, err
	}
	payload, err := proc.gateway.GetPaymentCode(ctx, orderID)
	if err != nil {
		return nil, err
	}
	entry := modelstorage.OrderStorageEntry{
		ID:               orderID,
		Platform:         order.platform,
		SteamID:          order.steamID,
		PubgUID:          order.pubgUID,
		Amount:           order.amount.StringFixed(2),
		DiscountedAmount: discounted.StringFixed(2),
		Status:           StatusInProgress,
		CreatedAt:        proc.now().UTC(),
		QRPayload:        sql.NullString{String: payload, Valid: payload != ""},
	}
	if err := proc.orders.UpsertOrder(ctx, entry); err != nil {
		return nil, err
	}
	proc.log.Info().Msg(fmt.Sprintf("order %s created for %s %s", orderID, order.platform, order.accountID()))
	return &modeldto.OrderCreated{OK: true, QRPayload: payload, OperationID: orderID}, nil
}

// validate checks the request at the boundary before any upstream call.
func (proc *Processor) validate(order modeldto.NewOrder) (validOrder, error) {
	platform := strings.ToLower(strings.TrimSpace(order.Platform))
	if platform == "" || order.Amount == nil {
		return validOrder{}, &serviceErrors.ValidationError{Msg: "Отсутствуют обязательные данные: platform или amount"}
	}
	valid := validOrder{platform: platform, amount: *order.Amount}
	switch platform {
	case modeldto.PlatformSteam:
		valid.steamID = strings.TrimSpace(order.SteamID)
		if valid.steamID == "" {
			return validOrder{}, &serviceErrors.ValidationError{Msg: "Не указан логин Steam"}
		}
	case modeldto.PlatformPUBG:
		valid.pubgUID = strings.TrimSpace(order.PubgUID)
		if valid.pubgUID == "" {
			return validOrder{}, &serviceErrors.ValidationError{Msg: "Не указан PUBG UID"}
		}
	default:
		return validOrder{}, &serviceErrors.ValidationError{Msg: fmt.Sprintf("Неизвестная платформа: %s", order.Platform)}
	}
	if !valid.amount.Equal(valid.amount.Round(2)) {
		return validOrder{}, &serviceErrors.ValidationError{Msg: "Сумма должна быть указана с точностью до копеек"}
	}
	if valid.amount.LessThan(decimal.NewFromInt(proc.cfg.AmountMin)) || valid.amount.GreaterThan(decimal.NewFromInt(proc.cfg.AmountMax)) {
		return validOrder{}, &serviceErrors.ValidationError{Msg: fmt.Sprintf("Сумма должна быть от %d до %d", proc.cfg.AmountMin, proc.cfg.AmountMax)}
	}
	return valid, nil
}
