package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	"github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/debt/repository"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	"github.com/smallbiznis/backoffice/internal/ledgertest"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	partnerrepository "github.com/smallbiznis/backoffice/internal/partner/repository"
	transactiondomain "github.com/smallbiznis/backoffice/internal/transaction/domain"
	transactionrepository "github.com/smallbiznis/backoffice/internal/transaction/repository"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	svc    domain.Service
	client partnerdomain.Partner
	vendor partnerdomain.Partner
	txRepo transactiondomain.Repository
}

func newFixture(t *testing.T, orphanPolicy string) *fixture {
	t.Helper()

	db := ledgertest.OpenDB(t)
	node := ledgertest.Node(t)
	log := zap.NewNop()
	cfg := ledgertest.Config(config.WriteModeAtomic, orphanPolicy)
	repo := repository.Provide()
	txRepo := transactionrepository.Provide()

	remover := NewRemover(RemoverParams{
		Log:    log,
		Cfg:    cfg,
		Repo:   repo,
		TxRepo: txRepo,
	})
	svc := New(Params{
		DB:          db,
		Log:         log,
		Cfg:         cfg,
		GenID:       node,
		Clock:       clock.NewFakeClock(ledgertest.Epoch),
		Runner:      unit.NewRunner(db, unit.ModeAtomic, log, nil),
		Locker:      debtlock.NewMemoryLocker(time.Second),
		Repo:        repo,
		Remover:     remover,
		PartnerRepo: partnerrepository.Provide(),
	})

	return &fixture{
		db:     db,
		node:   node,
		svc:    svc,
		txRepo: txRepo,
		client: ledgertest.SeedPartner(t, db, node, partnerdomain.KindClient, "Client"),
		vendor: ledgertest.SeedPartner(t, db, node, partnerdomain.KindSupplier, "Vendor"),
	}
}

func (f *fixture) addTransaction(t *testing.T, debt domain.Debt, amount int64) {
	t.Helper()
	debtID := debt.ID
	require.NoError(t, f.txRepo.Insert(context.Background(), f.db, &transactiondomain.Transaction{
		ID:              f.node.Generate(),
		Type:            transactiondomain.TypeReceipt,
		PartnerID:       debt.PartnerID,
		Amount:          amount,
		TransactionDate: ledgertest.Epoch,
		DebtID:          &debtID,
		CreatedAt:       ledgertest.Epoch,
	}))
}

func strPtr(s string) *string { return &s }

func TestCreateManualDebt(t *testing.T) {
	f := newFixture(t, config.OrphanPolicyReject)
	due := ledgertest.Epoch.AddDate(0, 1, 0)

	debt, err := f.svc.Create(context.Background(), domain.CreateDebtRequest{
		PartnerID:   f.client.ID.String(),
		Type:        "receivable",
		TotalAmount: "12,500",
		DueDate:     &due,
		Notes:       "  retainer  ",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TypeReceivable, debt.Type)
	assert.Equal(t, int64(12_500), debt.TotalAmount)
	assert.Equal(t, int64(0), debt.PaidAmount)
	assert.Equal(t, "retainer", debt.Notes)
	assert.False(t, debt.Derived())

	got, err := f.svc.GetByID(context.Background(), domain.GetDebtRequest{ID: debt.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, debt.ID, got.ID)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
}

func TestCreateDebtValidation(t *testing.T) {
	f := newFixture(t, config.OrphanPolicyReject)

	cases := []struct {
		name string
		req  domain.CreateDebtRequest
		err  error
	}{
		{name: "bad type", req: domain.CreateDebtRequest{PartnerID: f.client.ID.String(), Type: "loan", TotalAmount: "1"}, err: domain.ErrInvalidType},
		{name: "negative total", req: domain.CreateDebtRequest{PartnerID: f.client.ID.String(), Type: "payable", TotalAmount: "-1"}, err: domain.ErrInvalidAmount},
		{name: "missing partner", req: domain.CreateDebtRequest{Type: "payable", TotalAmount: "1"}, err: domain.ErrInvalidPartner},
		{name: "unknown partner", req: domain.CreateDebtRequest{PartnerID: f.node.Generate().String(), Type: "payable", TotalAmount: "1"}, err: domain.ErrPartnerNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestUpdateManualDebtKeepsPaidAmount(t *testing.T) {
	f := newFixture(t, config.OrphanPolicyReject)
	debt := ledgertest.SeedDebt(t, f.db, domain.Debt{
		ID:          f.node.Generate(),
		PartnerID:   f.client.ID,
		Type:        domain.TypeReceivable,
		TotalAmount: 1_000,
		PaidAmount:  400,
	})

	updated, err := f.svc.Update(context.Background(), domain.UpdateDebtRequest{
		ID:          debt.ID.String(),
		TotalAmount: strPtr("1500"),
		Notes:       strPtr("renegotiated"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_500), updated.TotalAmount)

	got := ledgertest.Debt(t, f.db, debt.ID)
	assert.Equal(t, int64(1_500), got.TotalAmount)
	assert.Equal(t, int64(400), got.PaidAmount)
	assert.Equal(t, "renegotiated", got.Notes)
}

func TestDerivedDebtIsOwnedByCost(t *testing.T) {
	f := newFixture(t, config.OrphanPolicyReject)
	costID := f.node.Generate()
	debt := ledgertest.SeedDebt(t, f.db, domain.Debt{
		ID:           f.node.Generate(),
		PartnerID:    f.vendor.ID,
		Type:         domain.TypePayable,
		TotalAmount:  900,
		SourceCostID: &costID,
	})

	_, err := f.svc.Update(context.Background(), domain.UpdateDebtRequest{ID: debt.ID.String(), TotalAmount: strPtr("901")})
	require.ErrorIs(t, err, domain.ErrDebtOwnedByCost)

	_, err = f.svc.Update(context.Background(), domain.UpdateDebtRequest{ID: debt.ID.String(), PartnerID: strPtr(f.client.ID.String())})
	require.ErrorIs(t, err, domain.ErrDebtOwnedByCost)

	err = f.svc.Delete(context.Background(), domain.DeleteDebtRequest{ID: debt.ID.String()})
	require.ErrorIs(t, err, domain.ErrDebtOwnedByCost)

	// Unchanged values and notes are still editable.
	due := ledgertest.Epoch.AddDate(0, 0, 14)
	updated, err := f.svc.Update(context.Background(), domain.UpdateDebtRequest{
		ID:          debt.ID.String(),
		TotalAmount: strPtr("900"),
		DueDate:     &due,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)

	cleared, err := f.svc.Update(context.Background(), domain.UpdateDebtRequest{ID: debt.ID.String(), ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
}

func TestDeleteDebtRejectsWithTransactions(t *testing.T) {
	f := newFixture(t, config.OrphanPolicyReject)
	debt := ledgertest.SeedDebt(t, f.db, domain.Debt{
		ID:          f.node.Generate(),
		PartnerID:   f.client.ID,
		Type:        domain.TypeReceivable,
		TotalAmount: 1_000,
	})
	f.addTransaction(t, debt, 100)

	err := f.svc.Delete(context.Background(), domain.DeleteDebtRequest{ID: debt.ID.String()})
	require.ErrorIs(t, err, domain.ErrDebtHasTransactions)
	assert.NotNil(t, ledgertest.Debt(t, f.db, debt.ID))
	assert.Equal(t, int64(1), ledgertest.Count(t, f.db, "transactions"))
}

func TestDeleteDebtCascadesTransactions(t *testing.T) {
	f := newFixture(t, config.OrphanPolicyCascade)
	debt := ledgertest.SeedDebt(t, f.db, domain.Debt{
		ID:          f.node.Generate(),
		PartnerID:   f.client.ID,
		Type:        domain.TypeReceivable,
		TotalAmount: 1_000,
	})
	f.addTransaction(t, debt, 100)
	f.addTransaction(t, debt, 250)

	require.NoError(t, f.svc.Delete(context.Background(), domain.DeleteDebtRequest{ID: debt.ID.String()}))
	assert.Nil(t, ledgertest.Debt(t, f.db, debt.ID))
	assert.Equal(t, int64(0), ledgertest.Count(t, f.db, "transactions"))

	err := f.svc.Delete(context.Background(), domain.DeleteDebtRequest{ID: debt.ID.String()})
	require.ErrorIs(t, err, domain.ErrDebtNotFound)
}

func TestListDebtFilters(t *testing.T) {
	f := newFixture(t, config.OrphanPolicyReject)
	costID := f.node.Generate()
	soon := ledgertest.Epoch.AddDate(0, 0, 3)
	ledgertest.SeedDebt(t, f.db, domain.Debt{ID: f.node.Generate(), PartnerID: f.client.ID, Type: domain.TypeReceivable, TotalAmount: 100, PaidAmount: 100})
	ledgertest.SeedDebt(t, f.db, domain.Debt{ID: f.node.Generate(), PartnerID: f.client.ID, Type: domain.TypeReceivable, TotalAmount: 100, DueDate: &soon})
	ledgertest.SeedDebt(t, f.db, domain.Debt{ID: f.node.Generate(), PartnerID: f.vendor.ID, Type: domain.TypePayable, TotalAmount: 300, SourceCostID: &costID})

	resp, err := f.svc.List(context.Background(), domain.ListDebtRequest{Type: "receivable"})
	require.NoError(t, err)
	assert.Len(t, resp.Debts, 2)

	resp, err = f.svc.List(context.Background(), domain.ListDebtRequest{Outstanding: true})
	require.NoError(t, err)
	assert.Len(t, resp.Debts, 2)

	derived := true
	resp, err = f.svc.List(context.Background(), domain.ListDebtRequest{Derived: &derived})
	require.NoError(t, err)
	require.Len(t, resp.Debts, 1)
	assert.Equal(t, f.vendor.ID, resp.Debts[0].PartnerID)

	before := ledgertest.Epoch.AddDate(0, 0, 7)
	resp, err = f.svc.List(context.Background(), domain.ListDebtRequest{DueBefore: &before})
	require.NoError(t, err)
	assert.Len(t, resp.Debts, 1)

	resp, err = f.svc.List(context.Background(), domain.ListDebtRequest{PartnerID: f.vendor.ID.String()})
	require.NoError(t, err)
	assert.Len(t, resp.Debts, 1)

	_, err = f.svc.List(context.Background(), domain.ListDebtRequest{Type: "loan"})
	require.ErrorIs(t, err, domain.ErrInvalidType)
}
