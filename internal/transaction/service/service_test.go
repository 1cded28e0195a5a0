package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	debtrepository "github.com/smallbiznis/backoffice/internal/debt/repository"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	"github.com/smallbiznis/backoffice/internal/ledgertest"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	partnerrepository "github.com/smallbiznis/backoffice/internal/partner/repository"
	"github.com/smallbiznis/backoffice/internal/transaction/domain"
	"github.com/smallbiznis/backoffice/internal/transaction/repository"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	svc      domain.Service
	supplier partnerdomain.Partner
	client   partnerdomain.Partner
}

type fixtureOption func(*Params)

func newFixture(t *testing.T, mode string, opts ...fixtureOption) *fixture {
	t.Helper()

	db := ledgertest.OpenDB(t)
	node := ledgertest.Node(t)
	clk := clock.NewFakeClock(ledgertest.Epoch)
	log := zap.NewNop()

	p := Params{
		DB:          db,
		Log:         log,
		Cfg:         ledgertest.Config(mode, config.OrphanPolicyReject),
		GenID:       node,
		Clock:       clk,
		Runner:      unit.NewRunner(db, unit.ParseMode(mode), log, nil),
		Locker:      debtlock.NewMemoryLocker(time.Second),
		Repo:        repository.Provide(),
		DebtRepo:    debtrepository.Provide(),
		PartnerRepo: partnerrepository.Provide(),
	}
	for _, opt := range opts {
		opt(&p)
	}

	return &fixture{
		db:       db,
		node:     node,
		clock:    clk,
		svc:      New(p),
		supplier: ledgertest.SeedPartner(t, db, node, partnerdomain.KindSupplier, "Steel Supplier"),
		client:   ledgertest.SeedPartner(t, db, node, partnerdomain.KindClient, "Acme Client"),
	}
}

func (f *fixture) payable(t *testing.T, total int64) debtdomain.Debt {
	t.Helper()
	return ledgertest.SeedDebt(t, f.db, debtdomain.Debt{
		ID:          f.node.Generate(),
		PartnerID:   f.supplier.ID,
		Type:        debtdomain.TypePayable,
		TotalAmount: total,
	})
}

func (f *fixture) pay(t *testing.T, debtID snowflake.ID, amount string) domain.Transaction {
	t.Helper()
	tx, err := f.svc.Post(context.Background(), domain.PostTransactionRequest{
		Type:   "payment",
		Amount: amount,
		DebtID: debtID.String(),
	})
	require.NoError(t, err)
	return tx
}

func TestPostIncrementsPaidAmount(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	debt := f.payable(t, 5_000_000)

	tx := f.pay(t, debt.ID, "2,000,000")

	assert.Equal(t, f.supplier.ID, tx.PartnerID, "partner defaults to the debt's partner")
	require.NotNil(t, tx.DebtID)
	assert.Equal(t, debt.ID, *tx.DebtID)
	assert.Equal(t, ledgertest.Epoch, tx.TransactionDate)

	got := ledgertest.Debt(t, f.db, debt.ID)
	assert.Equal(t, int64(2_000_000), got.PaidAmount)
	assert.Equal(t, int64(3_000_000), got.Outstanding())
}

func TestDeleteRestoresPaidAmount(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	debt := f.payable(t, 5_000_000)
	tx := f.pay(t, debt.ID, "2000000")

	err := f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: tx.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, int64(0), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
	assert.Equal(t, int64(0), ledgertest.Count(t, f.db, "transactions"))
}

func TestOverPaymentThenReversal(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	debt := f.payable(t, 1_500_000)

	first := f.pay(t, debt.ID, "1000000")
	f.pay(t, debt.ID, "1000000")

	got := ledgertest.Debt(t, f.db, debt.ID)
	assert.Equal(t, int64(2_000_000), got.PaidAmount, "no clamp against total")
	assert.Equal(t, int64(-500_000), got.Outstanding())

	require.NoError(t, f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: first.ID.String()}))

	got = ledgertest.Debt(t, f.db, debt.ID)
	assert.Equal(t, int64(1_000_000), got.PaidAmount)
	assert.Equal(t, int64(500_000), got.Outstanding())
}

func TestDeleteFloorsPaidAtZero(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	debt := f.payable(t, 1_000)
	tx := f.pay(t, debt.ID, "700")

	// Simulate an earlier lost update leaving paid below the transaction sum.
	require.NoError(t, f.db.Exec(`UPDATE debts SET paid_amount = 200 WHERE id = ?`, debt.ID).Error)

	require.NoError(t, f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: tx.ID.String()}))
	assert.Equal(t, int64(0), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
}

func TestPaidAmountMatchesLiveTransactions(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	debt := f.payable(t, 10_000)

	amounts := []string{"1200", "800", "3000", "50", "4950"}
	var posted []domain.Transaction
	for _, a := range amounts {
		posted = append(posted, f.pay(t, debt.ID, a))
		assert.Equal(t, ledgertest.TransactionSum(t, f.db, debt.ID), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
	}

	for _, i := range []int{3, 0, 4} {
		require.NoError(t, f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: posted[i].ID.String()}))
		assert.Equal(t, ledgertest.TransactionSum(t, f.db, debt.ID), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
	}
	assert.Equal(t, int64(3_800), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
}

func TestPostValidation(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	debt := f.payable(t, 1_000)
	receivable := ledgertest.SeedDebt(t, f.db, debtdomain.Debt{
		ID:          f.node.Generate(),
		PartnerID:   f.client.ID,
		Type:        debtdomain.TypeReceivable,
		TotalAmount: 1_000,
	})

	cases := []struct {
		name string
		req  domain.PostTransactionRequest
		err  error
	}{
		{name: "zero amount", req: domain.PostTransactionRequest{Type: "payment", Amount: "0", DebtID: debt.ID.String()}, err: domain.ErrInvalidAmount},
		{name: "negative amount", req: domain.PostTransactionRequest{Type: "payment", Amount: "-5", DebtID: debt.ID.String()}, err: domain.ErrInvalidAmount},
		{name: "bad type", req: domain.PostTransactionRequest{Type: "refund", Amount: "5", DebtID: debt.ID.String()}, err: domain.ErrInvalidType},
		{name: "unknown debt", req: domain.PostTransactionRequest{Type: "payment", Amount: "5", DebtID: f.node.Generate().String()}, err: domain.ErrDebtNotFound},
		{name: "receipt on payable", req: domain.PostTransactionRequest{Type: "receipt", Amount: "5", DebtID: debt.ID.String()}, err: domain.ErrTypeMismatch},
		{name: "payment on receivable", req: domain.PostTransactionRequest{Type: "payment", Amount: "5", DebtID: receivable.ID.String()}, err: domain.ErrTypeMismatch},
		{name: "no partner no debt", req: domain.PostTransactionRequest{Type: "payment", Amount: "5"}, err: domain.ErrInvalidPartner},
		{name: "unknown partner", req: domain.PostTransactionRequest{Type: "payment", Amount: "5", PartnerID: f.node.Generate().String()}, err: domain.ErrPartnerNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Post(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.err)
		})
	}

	assert.Equal(t, int64(0), ledgertest.Count(t, f.db, "transactions"))
	assert.Equal(t, int64(0), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
}

func TestPostWithoutDebt(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)

	tx, err := f.svc.Post(context.Background(), domain.PostTransactionRequest{
		Type:      "receipt",
		Amount:    "250",
		PartnerID: f.client.ID.String(),
	})
	require.NoError(t, err)
	assert.Nil(t, tx.DebtID)

	require.NoError(t, f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: tx.ID.String()}))
	_, err = f.svc.GetByID(context.Background(), domain.GetTransactionRequest{ID: tx.ID.String()})
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestDeleteUnknownTransaction(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)

	err := f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: f.node.Generate().String()})
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	err = f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: "nope"})
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestAmendReplacesTransaction(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	debt := f.payable(t, 5_000)
	original := f.pay(t, debt.ID, "1000")
	f.pay(t, debt.ID, "500")

	amount := "1750"
	amended, err := f.svc.Amend(context.Background(), domain.AmendTransactionRequest{
		ID:     original.ID.String(),
		Amount: &amount,
	})
	require.NoError(t, err)

	assert.NotEqual(t, original.ID, amended.ID)
	assert.Equal(t, int64(1_750), amended.Amount)
	assert.Equal(t, original.PartnerID, amended.PartnerID)

	_, err = f.svc.GetByID(context.Background(), domain.GetTransactionRequest{ID: original.ID.String()})
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	assert.Equal(t, int64(2_250), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
	assert.Equal(t, ledgertest.TransactionSum(t, f.db, debt.ID), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
}

func TestListFiltersByDebt(t *testing.T) {
	f := newFixture(t, config.WriteModeAtomic)
	a := f.payable(t, 1_000)
	b := f.payable(t, 1_000)
	f.pay(t, a.ID, "10")
	f.pay(t, a.ID, "20")
	f.pay(t, b.ID, "30")

	resp, err := f.svc.List(context.Background(), domain.ListTransactionRequest{DebtID: a.ID.String()})
	require.NoError(t, err)
	assert.Len(t, resp.Transactions, 2)
	assert.False(t, resp.HasMore)

	from := ledgertest.Epoch.Add(time.Hour)
	to := ledgertest.Epoch
	_, err = f.svc.List(context.Background(), domain.ListTransactionRequest{DateFrom: &from, DateTo: &to})
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

type failingDebtRepo struct {
	debtdomain.Repository
	failIncrement bool
	failDecrement bool
}

var errInjected = errors.New("injected failure")

func (r *failingDebtRepo) IncrementPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error {
	if r.failIncrement {
		return errInjected
	}
	return r.Repository.IncrementPaid(ctx, db, id, amount, at)
}

func (r *failingDebtRepo) DecrementPaidFloor(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error {
	if r.failDecrement {
		return errInjected
	}
	return r.Repository.DecrementPaidFloor(ctx, db, id, amount, at)
}

type failingTxRepo struct {
	domain.Repository
	failDelete bool
}

func (r *failingTxRepo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if r.failDelete {
		return errInjected
	}
	return r.Repository.Delete(ctx, db, id)
}

func TestPostRollsBackWhenDebtUpdateFails(t *testing.T) {
	for _, mode := range []string{config.WriteModeAtomic, config.WriteModeCompensating} {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, mode, func(p *Params) {
				p.DebtRepo = &failingDebtRepo{Repository: p.DebtRepo, failIncrement: true}
			})
			debt := f.payable(t, 1_000)

			_, err := f.svc.Post(context.Background(), domain.PostTransactionRequest{
				Type:   "payment",
				Amount: "400",
				DebtID: debt.ID.String(),
			})
			require.ErrorIs(t, err, errInjected)
			_, partial := unit.AsPartialFailure(err)
			assert.False(t, partial)

			assert.Equal(t, int64(0), ledgertest.Count(t, f.db, "transactions"))
			assert.Equal(t, int64(0), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
		})
	}
}

func TestPostReportsPartialFailureWhenCompensationFails(t *testing.T) {
	f := newFixture(t, config.WriteModeCompensating, func(p *Params) {
		p.DebtRepo = &failingDebtRepo{Repository: p.DebtRepo, failIncrement: true}
		p.Repo = &failingTxRepo{Repository: p.Repo, failDelete: true}
	})
	debt := f.payable(t, 1_000)

	_, err := f.svc.Post(context.Background(), domain.PostTransactionRequest{
		Type:   "payment",
		Amount: "400",
		DebtID: debt.ID.String(),
	})
	pf, ok := unit.AsPartialFailure(err)
	require.True(t, ok, "expected partial failure, got %v", err)
	assert.Equal(t, "debt_paid_sum", pf.Target.Invariant)
	assert.Equal(t, debt.ID.String(), pf.Target.EntityID)
	assert.Equal(t, "increment paid amount", pf.Step)
	require.ErrorIs(t, pf.CompensationErr, errInjected)
}

func TestDeleteRollsBackWhenTransactionDeleteFails(t *testing.T) {
	for _, mode := range []string{config.WriteModeAtomic, config.WriteModeCompensating} {
		t.Run(mode, func(t *testing.T) {
			failing := &failingTxRepo{}
			f := newFixture(t, mode, func(p *Params) {
				failing.Repository = p.Repo
				p.Repo = failing
			})
			debt := f.payable(t, 1_000)
			tx := f.pay(t, debt.ID, "600")

			failing.failDelete = true
			err := f.svc.Delete(context.Background(), domain.DeleteTransactionRequest{ID: tx.ID.String()})
			require.ErrorIs(t, err, errInjected)

			assert.Equal(t, int64(600), ledgertest.Debt(t, f.db, debt.ID).PaidAmount)
			assert.Equal(t, int64(1), ledgertest.Count(t, f.db, "transactions"))
		})
	}
}
