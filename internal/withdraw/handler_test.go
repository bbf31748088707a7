package withdraw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/ledger"
	"github.com/emperorhan/custody-settlement/internal/store/memory"
	"github.com/emperorhan/custody-settlement/internal/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	from    string
	payment Payment
}

type fakeCreator struct {
	mu      sync.Mutex
	balance decimal.Decimal
	sends   []sent
	// fail decides whether a send from the given address fails.
	fail func(from string) error
}

func (c *fakeCreator) Send(_ context.Context, from wallet.Wallet, p Payment) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, sent{from: from.Address(), payment: p})
	if c.fail != nil {
		if err := c.fail(from.Address()); err != nil {
			return "", creationError(p.TransferID, "TRX", StageBroadcast, err)
		}
	}
	return fmt.Sprintf("tx-%d", len(c.sends)), nil
}

func (c *fakeCreator) NativeBalance(context.Context, string) (decimal.Decimal, error) {
	return c.balance, nil
}

func (c *fakeCreator) sentFrom(addr string) []Payment {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Payment
	for _, s := range c.sends {
		if s.from == addr {
			out = append(out, s.payment)
		}
	}
	return out
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (r *recordingAlerter) Send(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recordingAlerter) ofType(t alert.AlertType) []alert.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []alert.Alert
	for _, a := range r.alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

type fixture struct {
	store   *memory.Store
	creator *fakeCreator
	alerter *recordingAlerter
	hot     wallet.Wallet
	fee     wallet.Wallet
	handler *Handler
}

func newFixture(t *testing.T, hotBalance string, withFeeWallet bool, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.New(),
		creator: &fakeCreator{balance: decimal.RequireFromString(hotBalance)},
		alerter: &recordingAlerter{},
		hot:     tronWallet(t),
		fee:     tronWallet(t),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithAlerter(f.alerter)}, opts...)
	if withFeeWallet {
		opts = append(opts, WithFeeWallet(f.fee))
	}
	f.handler = NewHandler(trxNetwork, f.creator, f.hot, f.store, logger, opts...)
	return f
}

func (f *fixture) request(t *testing.T, asset, amount string) *model.Transfer {
	t.Helper()
	tr, err := f.handler.Request(context.Background(), Request{
		Network:   "TRX",
		AccountID: 7,
		Asset:     asset,
		Amount:    decimal.RequireFromString(amount),
		To:        tronAddress(t),
	})
	require.NoError(t, err)
	return tr
}

func (f *fixture) transfer(t *testing.T, id uuid.UUID) model.Transfer {
	t.Helper()
	for _, tr := range f.store.Transfers("TRX") {
		if tr.ID == id {
			return tr
		}
	}
	t.Fatalf("transfer %s not found", id)
	return model.Transfer{}
}

func (f *fixture) feeTransfers() []model.Transfer {
	var out []model.Transfer
	for _, tr := range f.store.Transfers("TRX") {
		if tr.IsFee {
			out = append(out, tr)
		}
	}
	return out
}

var usdtWallet = model.Wallet{AccountID: 7, Asset: "USDT"}

func TestHandler_RequestLocksBalance(t *testing.T) {
	f := newFixture(t, "1000", false)
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))

	tr := f.request(t, "usdt", "40")

	assert.Equal(t, model.StatusNotBroadcast, tr.Status)
	assert.Equal(t, model.DirectionWithdrawal, tr.Direction)
	assert.Equal(t, usdtWallet, tr.Wallet)
	total, locked := f.store.Balance(usdtWallet)
	assert.Equal(t, "100", total.String())
	assert.Equal(t, "40", locked.String())
}

func TestHandler_RequestInsufficientBalanceRollsBack(t *testing.T) {
	f := newFixture(t, "1000", false)
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))
	f.request(t, "USDT", "70")

	_, err := f.handler.Request(context.Background(), Request{
		Network: "TRX", AccountID: 7, Asset: "USDT", Amount: decimal.NewFromInt(31), To: tronAddress(t),
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	assert.Len(t, f.store.Transfers("TRX"), 1)
	_, locked := f.store.Balance(usdtWallet)
	assert.Equal(t, "70", locked.String())
}

func TestHandler_RequestValidation(t *testing.T) {
	f := newFixture(t, "1000", false)
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))
	to := tronAddress(t)

	cases := map[string]Request{
		"other network":   {Network: "BSC", AccountID: 7, Asset: "USDT", Amount: decimal.NewFromInt(1), To: to},
		"zero amount":     {Network: "TRX", AccountID: 7, Asset: "USDT", Amount: decimal.Zero, To: to},
		"negative amount": {Network: "TRX", AccountID: 7, Asset: "USDT", Amount: decimal.NewFromInt(-1), To: to},
		"unlisted asset":  {Network: "TRX", AccountID: 7, Asset: "USDC", Amount: decimal.NewFromInt(1), To: to},
		"precision":       {Network: "TRX", AccountID: 7, Asset: "USDT", Amount: decimal.RequireFromString("1.0000001"), To: to},
		"evm destination": {Network: "TRX", AccountID: 7, Asset: "USDT", Amount: decimal.NewFromInt(1), To: "0x000000000000000000000000000000000000bEEF"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.handler.Request(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Empty(t, f.store.Transfers("TRX"))
}

func TestHandler_ProcessBroadcasts(t *testing.T) {
	f := newFixture(t, "1000", false)
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))
	a := f.request(t, "USDT", "10")
	b := f.request(t, "USDT", "20")

	require.NoError(t, f.handler.Process(context.Background()))

	sends := f.creator.sentFrom(f.hot.Address())
	require.Len(t, sends, 2)
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		tr := f.transfer(t, id)
		assert.Equal(t, model.StatusPending, tr.Status)
		assert.NotEmpty(t, tr.TxHash)
		assert.Empty(t, tr.BlockHash)
	}

	// Nothing left to broadcast.
	require.NoError(t, f.handler.Process(context.Background()))
	assert.Len(t, f.creator.sentFrom(f.hot.Address()), 2)
}

func TestHandler_FeeShortfallTopsUpAndDefers(t *testing.T) {
	f := newFixture(t, "10", true)
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))
	w := f.request(t, "USDT", "10")

	require.NoError(t, f.handler.Process(context.Background()))

	assert.Empty(t, f.creator.sentFrom(f.hot.Address()))
	topUps := f.creator.sentFrom(f.fee.Address())
	require.Len(t, topUps, 1)
	assert.Equal(t, f.hot.Address(), topUps[0].To)
	assert.Equal(t, "TRX", topUps[0].Asset)
	assert.Equal(t, "300", topUps[0].Amount.String())

	fees := f.feeTransfers()
	require.Len(t, fees, 1)
	assert.Equal(t, model.StatusPending, fees[0].Status)
	assert.Equal(t, model.StatusNotBroadcast, f.transfer(t, w.ID).Status)
	assert.Len(t, f.alerter.ofType(alert.AlertTypeFeeTopUp), 1)

	// The in-flight top-up blocks a second one.
	require.NoError(t, f.handler.Process(context.Background()))
	assert.Len(t, f.creator.sentFrom(f.fee.Address()), 1)

	// Once funded the withdrawal goes out.
	f.creator.balance = decimal.NewFromInt(310)
	require.NoError(t, f.handler.Process(context.Background()))
	assert.Len(t, f.creator.sentFrom(f.hot.Address()), 1)
	assert.Equal(t, model.StatusPending, f.transfer(t, w.ID).Status)
}

func TestHandler_FeeShortfallWithoutFeeWallet(t *testing.T) {
	f := newFixture(t, "10", false)
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))
	w := f.request(t, "USDT", "10")

	require.NoError(t, f.handler.Process(context.Background()))

	assert.Empty(t, f.creator.sends)
	assert.Empty(t, f.feeTransfers())
	assert.Equal(t, model.StatusNotBroadcast, f.transfer(t, w.ID).Status)
}

func TestHandler_NativeWithdrawalsCountTowardsReserve(t *testing.T) {
	f := newFixture(t, "150", true)
	trxWallet := model.Wallet{AccountID: 7, Asset: "TRX"}
	f.store.Credit(trxWallet, decimal.NewFromInt(500))
	f.request(t, "TRX", "80")

	require.NoError(t, f.handler.Process(context.Background()))

	// 150 held < 100 reserve + 80 queued.
	assert.Empty(t, f.creator.sentFrom(f.hot.Address()))
	require.Len(t, f.creator.sentFrom(f.fee.Address()), 1)
}

func TestHandler_BroadcastFailureRecordedUntilMaxAttempts(t *testing.T) {
	f := newFixture(t, "1000", false, WithMaxAttempts(2))
	f.creator.fail = func(string) error { return errors.New("connection refused") }
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))
	w := f.request(t, "USDT", "10")

	for i := 0; i < 3; i++ {
		err := f.handler.Process(context.Background())
		if i < 2 {
			require.ErrorIs(t, err, ErrBroadcastFailed)
		} else {
			require.NoError(t, err)
		}
	}

	assert.Len(t, f.creator.sends, 2)
	tr := f.transfer(t, w.ID)
	assert.Equal(t, model.StatusNotBroadcast, tr.Status)
	assert.Equal(t, 2, tr.BroadcastAttempts)
	assert.Contains(t, tr.LastError, "connection refused")

	alerts := f.alerter.ofType(alert.AlertTypeBroadcastFailed)
	require.Len(t, alerts, 2)
	assert.Equal(t, "1/2", alerts[0].Fields["attempt"])
	assert.Equal(t, "2/2", alerts[1].Fields["attempt"])

	// The lock stays until an operator resolves the withdrawal.
	_, locked := f.store.Balance(usdtWallet)
	assert.Equal(t, "10", locked.String())
}

func TestHandler_FailedTopUpIsCanceled(t *testing.T) {
	f := newFixture(t, "10", true)
	f.creator.fail = func(from string) error {
		if from == f.fee.Address() {
			return errors.New("fee wallet empty")
		}
		return nil
	}
	f.store.Credit(usdtWallet, decimal.NewFromInt(100))
	f.request(t, "USDT", "10")

	err := f.handler.Process(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fee wallet empty")

	fees := f.feeTransfers()
	require.Len(t, fees, 1)
	assert.Equal(t, model.StatusCanceled, fees[0].Status)
	assert.Equal(t, 1, fees[0].BroadcastAttempts)

	// The canceled top-up does not block a retry.
	require.Error(t, f.handler.Process(context.Background()))
	assert.Len(t, f.creator.sentFrom(f.fee.Address()), 2)
	assert.Empty(t, f.alerter.ofType(alert.AlertTypeFeeTopUp))
}
