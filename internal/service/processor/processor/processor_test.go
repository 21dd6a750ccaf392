package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	clientErrors "github.com/danilovkiri/dk-go-refill/internal/client/errors"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/danilovkiri/dk-go-refill/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-refill/internal/models/modelstorage"
	serviceErrors "github.com/danilovkiri/dk-go-refill/internal/service/processor/errors"
	storageErrors "github.com/danilovkiri/dk-go-refill/internal/storage/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryOrders keeps orders keyed by id, like the upsert in the SQL storage.
type memoryOrders struct {
	orders    map[string]modelstorage.OrderStorageEntry
	upsertErr error
	upserts   int
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{orders: map[string]modelstorage.OrderStorageEntry{}}
}

func (m *memoryOrders) UpsertOrder(_ context.Context, order modelstorage.OrderStorageEntry) error {
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memoryOrders) GetOrder(_ context.Context, id string) (*modelstorage.OrderStorageEntry, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: id}
	}
	return &order, nil
}

type mockGateway struct {
	CreateOrderFunc    func(ctx context.Context, description string, minorAmount int64) (string, error)
	GetPaymentCodeFunc func(ctx context.Context, orderID string) (string, error)
	createCalls        []int64
	descriptions       []string
}

func (m *mockGateway) CreateOrder(ctx context.Context, description string, minorAmount int64) (string, error) {
	m.createCalls = append(m.createCalls, minorAmount)
	m.descriptions = append(m.descriptions, description)
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, description, minorAmount)
	}
	return "order-1", nil
}

func (m *mockGateway) GetPaymentCode(ctx context.Context, orderID string) (string, error) {
	if m.GetPaymentCodeFunc != nil {
		return m.GetPaymentCodeFunc(ctx, orderID)
	}
	return "https://qr.nspk.ru/" + orderID, nil
}

type mockChecker struct {
	CheckLoginFunc func(ctx context.Context, login string) error
	logins         []string
}

func (m *mockChecker) CheckLogin(ctx context.Context, login string) error {
	m.logins = append(m.logins, login)
	if m.CheckLoginFunc != nil {
		return m.CheckLoginFunc(ctx, login)
	}
	return nil
}

type mockNotifier struct {
	err      error
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, text string) error {
	m.messages = append(m.messages, text)
	return m.err
}

type fixture struct {
	proc     *Processor
	orders   *memoryOrders
	gateway  *mockGateway
	checker  *mockChecker
	notifier *mockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:   newMemoryOrders(),
		gateway:  &mockGateway{},
		checker:  &mockChecker{},
		notifier: &mockNotifier{},
	}
	log := zerolog.Nop()
	proc, err := InitService(f.orders, f.gateway, f.checker, f.notifier, &config.OrderConfig{AmountMin: 100, AmountMax: 100000}, &log)
	require.NoError(t, err)
	proc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	f.proc = proc
	return f
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestInitService_NilArguments(t *testing.T) {
	log := zerolog.Nop()
	cfg := &config.OrderConfig{AmountMin: 100, AmountMax: 100000}
	tests := []struct {
		name string
		init func() (*Processor, error)
	}{
		{name: "orders", init: func() (*Processor, error) {
			return InitService(nil, &mockGateway{}, &mockChecker{}, &mockNotifier{}, cfg, &log)
		}},
		{name: "gateway", init: func() (*Processor, error) {
			return InitService(newMemoryOrders(), nil, &mockChecker{}, &mockNotifier{}, cfg, &log)
		}},
		{name: "checker", init: func() (*Processor, error) {
			return InitService(newMemoryOrders(), &mockGateway{}, nil, &mockNotifier{}, cfg, &log)
		}},
		{name: "notifier", init: func() (*Processor, error) {
			return InitService(newMemoryOrders(), &mockGateway{}, &mockChecker{}, nil, cfg, &log)
		}},
		{name: "config", init: func() (*Processor, error) {
			return InitService(newMemoryOrders(), &mockGateway{}, &mockChecker{}, &mockNotifier{}, nil, &log)
		}},
		{name: "logger", init: func() (*Processor, error) {
			return InitService(newMemoryOrders(), &mockGateway{}, &mockChecker{}, &mockNotifier{}, cfg, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := tt.init()
			assert.Nil(t, proc)
			var nilArg *serviceErrors.ServiceFoundNilArgument
			assert.True(t, errors.As(err, &nilArg))
		})
	}
}

func TestPlaceOrder_Steam(t *testing.T) {
	f := newFixture(t)

	res, err := f.proc.PlaceOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "gamer1", Amount: amount("1000")})
	require.NoError(t, err)
	assert.Equal(t, &modeldto.OrderCreated{OK: true, QRPayload: "https://qr.nspk.ru/order-1", OperationID: "order-1"}, res)

	assert.Equal(t, []string{"gamer1"}, f.checker.logins)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "Login Steam: gamer1")
	assert.Contains(t, f.notifier.messages[0], "Сумма: 900.00")
	assert.Equal(t, []int64{100000}, f.gateway.createCalls)
	assert.Equal(t, []string{"Пополнение steam"}, f.gateway.descriptions)

	stored := f.orders.orders["order-1"]
	assert.Equal(t, "steam", stored.Platform)
	assert.Equal(t, "gamer1", stored.SteamID)
	assert.Empty(t, stored.PubgUID)
	assert.Equal(t, "1000.00", stored.Amount)
	assert.Equal(t, "900.00", stored.DiscountedAmount)
	assert.Equal(t, StatusInProgress, stored.Status)
	assert.True(t, stored.QRPayload.Valid)
}

func TestPlaceOrder_PubgSkipsVerification(t *testing.T) {
	f := newFixture(t)

	_, err := f.proc.PlaceOrder(context.Background(), modeldto.NewOrder{Platform: "PUBG", SteamID: "stray", PubgUID: "5123456789", Amount: amount("500")})
	require.NoError(t, err)
	assert.Empty(t, f.checker.logins)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "Pubg UID: 5123456789")
	assert.Contains(t, f.notifier.messages[0], "Сумма: 460.00")

	stored := f.orders.orders["order-1"]
	assert.Equal(t, "pubg", stored.Platform)
	assert.Empty(t, stored.SteamID)
	assert.Equal(t, "5123456789", stored.PubgUID)
}

func TestPlaceOrder_RejectedLogin(t *testing.T) {
	f := newFixture(t)
	f.checker.CheckLoginFunc = func(ctx context.Context, login string) error {
		return &clientErrors.RejectedError{Login: login, Code: clientErrors.DefaultRejectionCode}
	}

	_, err := f.proc.PlaceOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "nobody", Amount: amount("1000")})
	var rejected *clientErrors.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, -100, rejected.Code)
	assert.Empty(t, f.gateway.createCalls)
	assert.Empty(t, f.notifier.messages)
	assert.Zero(t, f.orders.upserts)
}

func TestPlaceOrder_CheckerUnavailable(t *testing.T) {
	f := newFixture(t)
	f.checker.CheckLoginFunc = func(ctx context.Context, login string) error {
		return &clientErrors.UpstreamError{Service: "login checker", Err: errors.New("dial tcp: refused")}
	}

	_, err := f.proc.PlaceOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "gamer1", Amount: amount("1000")})
	var verification *serviceErrors.VerificationError
	assert.True(t, errors.As(err, &verification))
	assert.Empty(t, f.gateway.createCalls)
}

func TestPlaceOrder_NotificationFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("telegram down")

	res, err := f.proc.PlaceOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "gamer1", Amount: amount("150")})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []int64{15000}, f.gateway.createCalls)
}

func TestCreateOrder_SkipsVerificationAndNotification(t *testing.T) {
	f := newFixture(t)

	_, err := f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "gamer1", Amount: amount("100")})
	require.NoError(t, err)
	assert.Empty(t, f.checker.logins)
	assert.Empty(t, f.notifier.messages)
	assert.Equal(t, []int64{10000}, f.gateway.createCalls)
}

func TestCreateOrder_GatewayFailures(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.CreateOrderFunc = func(ctx context.Context, description string, minorAmount int64) (string, error) {
			return "", &clientErrors.UpstreamError{Service: "payment gateway", Status: 500}
		}
		_, err := f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "gamer1", Amount: amount("100")})
		assert.Error(t, err)
		assert.Zero(t, f.orders.upserts)
	})
	t.Run("payment code", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.GetPaymentCodeFunc = func(ctx context.Context, orderID string) (string, error) {
			return "", &clientErrors.UpstreamError{Service: "payment gateway", Status: 502}
		}
		_, err := f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "gamer1", Amount: amount("100")})
		assert.Error(t, err)
		assert.Zero(t, f.orders.upserts)
	})
}

func TestCreateOrder_StorageFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.orders.upsertErr = &storageErrors.UnavailableError{Err: errors.New("connection refused")}

	_, err := f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "pubg", PubgUID: "1", Amount: amount("100")})
	var unavailable *storageErrors.UnavailableError
	assert.True(t, errors.As(err, &unavailable))
	assert.Len(t, f.gateway.createCalls, 1)
}

func TestCreateOrder_UpsertKeepsLatest(t *testing.T) {
	f := newFixture(t)

	_, err := f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "first", Amount: amount("100")})
	require.NoError(t, err)
	_, err = f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "second", Amount: amount("200")})
	require.NoError(t, err)

	assert.Len(t, f.orders.orders, 1)
	assert.Equal(t, "second", f.orders.orders["order-1"].SteamID)
	assert.Equal(t, "200.00", f.orders.orders["order-1"].Amount)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		order modeldto.NewOrder
	}{
		{name: "missing platform", order: modeldto.NewOrder{SteamID: "a", Amount: amount("100")}},
		{name: "missing amount", order: modeldto.NewOrder{Platform: "steam", SteamID: "a"}},
		{name: "unknown platform", order: modeldto.NewOrder{Platform: "epic", SteamID: "a", Amount: amount("100")}},
		{name: "empty steam login", order: modeldto.NewOrder{Platform: "steam", PubgUID: "1", Amount: amount("100")}},
		{name: "empty pubg uid", order: modeldto.NewOrder{Platform: "pubg", SteamID: "a", Amount: amount("100")}},
		{name: "below range", order: modeldto.NewOrder{Platform: "steam", SteamID: "a", Amount: amount("99.99")}},
		{name: "above range", order: modeldto.NewOrder{Platform: "steam", SteamID: "a", Amount: amount("100000.01")}},
		{name: "sub-kopeck precision", order: modeldto.NewOrder{Platform: "steam", SteamID: "a", Amount: amount("150.005")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.proc.PlaceOrder(context.Background(), tt.order)
			var validation *serviceErrors.ValidationError
			require.True(t, errors.As(err, &validation))
			assert.Empty(t, f.checker.logins)
			assert.Empty(t, f.gateway.createCalls)
		})
	}
}

func TestValidation_RangeIsInclusive(t *testing.T) {
	for _, a := range []string{"100", "100000"} {
		f := newFixture(t)
		_, err := f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "a", Amount: amount(a)})
		assert.NoError(t, err, a)
	}
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.proc.CreateOrder(context.Background(), modeldto.NewOrder{Platform: "steam", SteamID: "gamer1", Amount: amount("1000")})
	require.NoError(t, err)

	order, err := f.proc.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "gamer1", order.SteamID)
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, order.DiscountedAmount.Equal(decimal.NewFromInt(900)))
	require.NotNil(t, order.QRPayload)
	assert.Equal(t, "https://qr.nspk.ru/order-1", *order.QRPayload)

	_, err = f.proc.GetOrder(context.Background(), "missing")
	var notFound *storageErrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}
