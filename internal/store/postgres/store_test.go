package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/ledger"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &Store{db: db}, mock
}

func uniqueErr(constraint string) error {
	return &pq.Error{Code: uniqueViolation, Constraint: constraint}
}

var transferColumnNames = []string{
	"id", "group_id", "network", "account_id", "asset", "amount", "direction", "status",
	"tx_hash", "block_hash", "block_number", "deposit_address", "counterparty", "is_fee",
	"broadcast_attempts", "last_error", "created_at", "updated_at",
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM block_records`).WithArgs("TRX", int64(10)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, r store.Repos) error {
		n, err := r.Blocks.DeleteFromNumber(ctx, "TRX", 10)
		assert.Equal(t, int64(2), n)
		return err
	}))

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err := s.WithTx(ctx, func(context.Context, store.Repos) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestBlockRepo(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	blocks := s.Repos().Blocks
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM block_records\s+WHERE network = \$1\s+ORDER BY number DESC`).
		WithArgs("TRX").
		WillReturnRows(sqlmock.NewRows([]string{"network", "number", "hash", "timestamp", "created_at"}))
	latest, err := blocks.Latest(ctx, "TRX")
	require.NoError(t, err)
	assert.Nil(t, latest)

	mock.ExpectQuery(`FROM block_records`).
		WithArgs("TRX").
		WillReturnRows(sqlmock.NewRows([]string{"network", "number", "hash", "timestamp", "created_at"}).
			AddRow("TRX", int64(42), "b42", ts, ts))
	latest, err = blocks.Latest(ctx, "TRX")
	require.NoError(t, err)
	assert.Equal(t, int64(42), latest.Number)
	assert.Equal(t, "b42", latest.Hash)

	mock.ExpectQuery(`INSERT INTO block_records`).
		WithArgs("TRX", int64(43), "b43", ts).
		WillReturnError(uniqueErr("block_records_pkey"))
	err = blocks.Insert(ctx, &model.BlockRecord{Network: "TRX", Number: 43, Hash: "b43", Timestamp: ts})
	assert.ErrorIs(t, err, store.ErrDuplicateBlock)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM block_records`).
		WithArgs("TRX", "b42").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := blocks.Exists(ctx, "TRX", "b42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTransferRepo_Create(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	repo := s.Repos().Transfers
	now := time.Now()

	tr := &model.Transfer{
		Network:        "TRX",
		Wallet:         model.Wallet{AccountID: 7, Asset: "USDT"},
		Amount:         decimal.RequireFromString("12.5"),
		Direction:      model.DirectionDeposit,
		Status:         model.StatusPending,
		TxHash:         "t1",
		BlockHash:      "b1",
		BlockNumber:    1,
		DepositAddress: "TA",
	}
	mock.ExpectQuery(`INSERT INTO transfers`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	require.NoError(t, repo.Create(ctx, tr))
	assert.NotEqual(t, uuid.Nil, tr.ID)
	assert.NotEqual(t, uuid.Nil, tr.GroupID)

	mock.ExpectQuery(`INSERT INTO transfers`).WillReturnError(uniqueErr("transfers_live_tx_key"))
	err := repo.Create(ctx, &model.Transfer{Network: "TRX", TxHash: "t1"})
	assert.ErrorIs(t, err, store.ErrDuplicateTransfer)
}

func TestTransferRepo_TransitionStatus(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	repo := s.Repos().Transfers
	id := uuid.New()

	mock.ExpectExec(`UPDATE transfers SET status = \$3`).
		WithArgs(id, model.StatusPending, model.StatusDone).
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := repo.TransitionStatus(ctx, id, model.StatusPending, model.StatusDone)
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec(`UPDATE transfers SET status = \$3`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM transfers WHERE id = \$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	changed, err = repo.TransitionStatus(ctx, id, model.StatusPending, model.StatusDone)
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectExec(`UPDATE transfers SET status = \$3`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	_, err = repo.TransitionStatus(ctx, id, model.StatusPending, model.StatusDone)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.TransitionStatus(ctx, id, model.StatusDone, model.StatusPending)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestTransferRepo_ListConfirmable(t *testing.T) {
	s, mock := newMockStore(t)
	id, group := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`WHERE network = \$1 AND status = 'pending' AND block_hash <> '' AND block_number <= \$2`).
		WithArgs("BSC", int64(100)).
		WillReturnRows(sqlmock.NewRows(transferColumnNames).AddRow(
			id.String(), group.String(), "BSC", int64(3), "USDT", "1.5", "deposit", "pending",
			"0xt", "0xb", int64(90), "0xA", "0xB", false,
			0, "", now, now,
		))
	out, err := s.Repos().Transfers.ListConfirmable(context.Background(), "BSC", 100)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, id, out[0].ID)
	assert.Equal(t, model.DirectionDeposit, out[0].Direction)
	assert.Equal(t, model.StatusPending, out[0].Status)
	assert.True(t, decimal.RequireFromString("1.5").Equal(out[0].Amount))
	assert.Equal(t, int64(90), out[0].BlockNumber)
}

func TestTransferRepo_FeeTxHashes(t *testing.T) {
	s, mock := newMockStore(t)
	repo := s.Repos().Transfers

	empty, err := repo.FeeTxHashes(context.Background(), "TRX", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	mock.ExpectQuery(`WHERE network = \$1 AND is_fee AND tx_hash = ANY\(\$2\)`).
		WithArgs("TRX", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"tx_hash"}).AddRow("fee1"))
	got, err := repo.FeeTxHashes(context.Background(), "TRX", []string{"fee1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"fee1": {}}, got)
}

func TestTransferRepo_MarkBroadcast(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`SET status = 'pending', tx_hash = \$2`).
		WithArgs(id, "0xhash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Repos().Transfers.MarkBroadcast(context.Background(), id, "0xhash"))

	mock.ExpectExec(`SET status = 'pending', tx_hash = \$2`).WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.Repos().Transfers.MarkBroadcast(context.Background(), id, "0xhash")
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestDepositAddressRepo(t *testing.T) {
	s, mock := newMockStore(t)
	repo := s.Repos().DepositAddresses
	now := time.Now()

	found, err := repo.FindByAddresses(context.Background(), "TRX", nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	mock.ExpectQuery(`FROM deposit_addresses`).
		WithArgs("TRX", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "network", "address", "account_id", "created_at"}).
			AddRow(int64(1), "TRX", "TA", int64(11), now))
	found, err = repo.FindByAddresses(context.Background(), "TRX", []string{"TA", "TZ"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(11), found[0].AccountID)

	mock.ExpectQuery(`INSERT INTO deposit_addresses`).
		WithArgs("BSC", "0xabcdef0123456789abcdef0123456789abcdef01", int64(13)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), now))
	hex := &model.DepositAddress{Network: "BSC", Address: "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", AccountID: 13}
	require.NoError(t, repo.Create(context.Background(), hex))
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", hex.Address)

	mock.ExpectQuery(`INSERT INTO deposit_addresses`).WillReturnError(uniqueErr("deposit_addresses_network_address_key"))
	err = repo.Create(context.Background(), &model.DepositAddress{Network: "TRX", Address: "TA", AccountID: 12})
	assert.ErrorIs(t, err, store.ErrDuplicateAddress)
}

func TestLedgerRepo_LockBalance(t *testing.T) {
	s, mock := newMockStore(t)
	l := s.Repos().Ledger
	w := model.Wallet{AccountID: 5, Asset: "TRX"}
	group := uuid.New()

	mock.ExpectExec(`UPDATE ledger_wallets SET locked = locked \+ \$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := l.LockBalance(context.Background(), group, w, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	mock.ExpectExec(`UPDATE ledger_wallets SET locked = locked \+ \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO balance_locks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, l.LockBalance(context.Background(), group, w, decimal.NewFromInt(10)))
}

func TestLedgerRepo_Apply(t *testing.T) {
	s, mock := newMockStore(t)
	l := s.Repos().Ledger

	withdrawal := &model.Transfer{
		ID:        uuid.New(),
		GroupID:   uuid.New(),
		Wallet:    model.Wallet{AccountID: 5, Asset: "TRX"},
		Amount:    decimal.NewFromInt(3),
		Direction: model.DirectionWithdrawal,
	}
	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE balance_locks SET released = true`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_wallets \(account_id, asset, balance\)`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, l.Apply(context.Background(), withdrawal))

	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnError(uniqueErr("ledger_entries_transfer_id_key"))
	err := l.Apply(context.Background(), withdrawal)
	assert.ErrorIs(t, err, ledger.ErrAlreadyApplied)

	deposit := &model.Transfer{
		ID:        uuid.New(),
		Wallet:    model.Wallet{AccountID: 5, Asset: "TRX"},
		Amount:    decimal.NewFromInt(3),
		Direction: model.DirectionDeposit,
	}
	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO ledger_wallets`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, l.Apply(context.Background(), deposit))
}
