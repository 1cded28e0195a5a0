package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/backoffice/internal/authorization"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	costrepository "github.com/smallbiznis/backoffice/internal/cost/repository"
	costservice "github.com/smallbiznis/backoffice/internal/cost/service"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	debtrepository "github.com/smallbiznis/backoffice/internal/debt/repository"
	debtservice "github.com/smallbiznis/backoffice/internal/debt/service"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/backoffice/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/backoffice/internal/ledger/service"
	"github.com/smallbiznis/backoffice/internal/ledgertest"
	ledgerviewdomain "github.com/smallbiznis/backoffice/internal/ledgerview/domain"
	ledgerviewrepository "github.com/smallbiznis/backoffice/internal/ledgerview/repository"
	ledgerviewservice "github.com/smallbiznis/backoffice/internal/ledgerview/service"
	"github.com/smallbiznis/backoffice/internal/observability"
	obsmetrics "github.com/smallbiznis/backoffice/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	partnerrepository "github.com/smallbiznis/backoffice/internal/partner/repository"
	partnerservice "github.com/smallbiznis/backoffice/internal/partner/service"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	registryrepository "github.com/smallbiznis/backoffice/internal/registry/repository"
	registryservice "github.com/smallbiznis/backoffice/internal/registry/service"
	transactiondomain "github.com/smallbiznis/backoffice/internal/transaction/domain"
	transactionrepository "github.com/smallbiznis/backoffice/internal/transaction/repository"
	transactionservice "github.com/smallbiznis/backoffice/internal/transaction/service"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine   *gin.Engine
	db       *gorm.DB
	contract registrydomain.Contract
	supplier partnerdomain.Partner
	client   partnerdomain.Partner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := ledgertest.OpenDB(t)
	node := ledgertest.Node(t)
	clk := clock.NewFakeClock(ledgertest.Epoch)
	log := zap.NewNop()
	cfg := ledgertest.Config(config.WriteModeAtomic, config.OrphanPolicyReject)
	runner := unit.NewRunner(db, unit.ModeAtomic, log, nil)
	locker := debtlock.NewMemoryLocker(time.Second)

	partnerRepo := partnerrepository.Provide()
	costRepo := costrepository.Provide()
	debtRepo := debtrepository.Provide()
	txRepo := transactionrepository.Provide()

	registry := registryservice.New(registryservice.Params{
		DB:          db,
		Log:         log,
		Cfg:         cfg,
		GenID:       node,
		Clock:       clk,
		Repo:        registryrepository.Provide(),
		PartnerRepo: partnerRepo,
	})
	remover := debtservice.NewRemover(debtservice.RemoverParams{
		Log:    log,
		Cfg:    cfg,
		Repo:   debtRepo,
		TxRepo: txRepo,
	})

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)

	httpMetrics, err := obsmetrics.NewHTTPMetricsWith(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "test"}, httpMetrics)

	NewServer(ServerParams{
		Gin:      engine,
		Cfg:      cfg,
		Log:      log,
		AuthzSvc: authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		PartnerSvc: partnerservice.New(partnerservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Clock: clk,
			Repo:  partnerRepo,
		}),
		RegistrySvc: registry,
		CostSvc: costservice.New(costservice.Params{
			DB:          db,
			Log:         log,
			Cfg:         cfg,
			GenID:       node,
			Clock:       clk,
			Runner:      runner,
			Locker:      locker,
			Repo:        costRepo,
			DebtRepo:    debtRepo,
			DebtRemover: remover,
			PartnerRepo: partnerRepo,
			Registry:    registry,
		}),
		DebtSvc: debtservice.New(debtservice.Params{
			DB:          db,
			Log:         log,
			Cfg:         cfg,
			GenID:       node,
			Clock:       clk,
			Runner:      runner,
			Locker:      locker,
			Repo:        debtRepo,
			Remover:     remover,
			PartnerRepo: partnerRepo,
		}),
		TransactionSvc: transactionservice.New(transactionservice.Params{
			DB:          db,
			Log:         log,
			Cfg:         cfg,
			GenID:       node,
			Clock:       clk,
			Runner:      runner,
			Locker:      locker,
			Repo:        txRepo,
			DebtRepo:    debtRepo,
			PartnerRepo: partnerRepo,
		}),
		ViewSvc: ledgerviewservice.New(ledgerviewservice.Params{
			DB:          db,
			Log:         log,
			Repo:        ledgerviewrepository.Provide(),
			CostRepo:    costRepo,
			DebtRepo:    debtRepo,
			PartnerRepo: partnerRepo,
			Registry:    registry,
		}),
		LedgerSvc: ledgerservice.NewService(ledgerservice.Params{
			DB:          db,
			Log:         log,
			GenID:       node,
			Clock:       clk,
			Runner:      runner,
			Locker:      locker,
			Repo:        ledgerrepository.Provide(),
			CostRepo:    costRepo,
			DebtRepo:    debtRepo,
			DebtRemover: remover,
			TxRepo:      txRepo,
			Registry:    registry,
		}),
	})

	return &testServer{
		engine:   engine,
		db:       db,
		contract: ledgertest.SeedContract(t, db, node, "Riverside Contract", 100_000_000),
		supplier: ledgertest.SeedPartner(t, db, node, partnerdomain.KindSupplier, "Steel Supplier"),
		client:   ledgertest.SeedPartner(t, db, node, partnerdomain.KindClient, "Riverside Client"),
	}
}

func (ts *testServer) do(t *testing.T, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(HeaderRole, role)
		req.Header.Set(HeaderActor, "user-1")
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Error
}

func (ts *testServer) createSupplierCost(t *testing.T, amount string) costdomain.Cost {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/costs", authorization.RoleAccountant, map[string]any{
		"parent_type": "contract",
		"parent_id":   ts.contract.ID.String(),
		"category":    "material",
		"supplier_id": ts.supplier.ID.String(),
		"amount":      amount,
		"description": "Rebar",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeData[costdomain.Cost](t, rec)
}

func (ts *testServer) derivedDebt(t *testing.T) debtdomain.Debt {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/debts?derived=true", authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeData[debtdomain.ListDebtResponse](t, rec)
	require.Len(t, list.Debts, 1)
	return list.Debts[0]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleHeaderRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/costs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/costs", "intern", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_role", decodeError(t, rec).Errors[0].Code)
}

func TestRolePermissions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/costs", authorization.RoleEmployee, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/contracts", authorization.RoleAccountant, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/ledger/repair", authorization.RoleAccountant, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/contracts", authorization.RoleEmployee, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCostPaymentFlow(t *testing.T) {
	ts := newTestServer(t)

	cost := ts.createSupplierCost(t, "5,000,000")
	assert.Equal(t, int64(5_000_000), cost.Amount)

	debt := ts.derivedDebt(t)
	require.NotNil(t, debt.SourceCostID)
	assert.Equal(t, cost.ID, *debt.SourceCostID)
	assert.Equal(t, debtdomain.TypePayable, debt.Type)
	assert.Equal(t, "Riverside Contract - Rebar", debt.Notes)

	rec := ts.do(t, http.MethodPost, "/api/transactions", authorization.RoleAccountant, map[string]any{
		"type":             "payment",
		"partner_id":       ts.supplier.ID.String(),
		"debt_id":          debt.ID.String(),
		"amount":           "2000000",
		"transaction_date": "2026-03-02",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tx := decodeData[transactiondomain.Transaction](t, rec)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), tx.TransactionDate.UTC())

	rec = ts.do(t, http.MethodGet, "/api/debts/"+debt.ID.String()+"/progress", authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	progress := decodeData[ledgerviewdomain.DebtProgress](t, rec)
	assert.Equal(t, int64(2_000_000), progress.PaidAmount)
	assert.Equal(t, int64(3_000_000), progress.Remaining)
	assert.Equal(t, "40", progress.PercentPaid.String())

	// The cost cannot be removed while its debt carries payments.
	rec = ts.do(t, http.MethodDelete, "/api/costs/"+cost.ID.String(), authorization.RoleAccountant, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "debt still has transactions", decodeError(t, rec).Message)

	rec = ts.do(t, http.MethodDelete, "/api/transactions/"+tx.ID.String(), authorization.RoleAccountant, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(0), ledgertest.Debt(t, ts.db, debt.ID).PaidAmount)

	rec = ts.do(t, http.MethodDelete, "/api/costs/"+cost.ID.String(), authorization.RoleAccountant, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, ledgertest.Debt(t, ts.db, debt.ID))
}

func TestDerivedDebtCannotBeEditedDirectly(t *testing.T) {
	ts := newTestServer(t)

	ts.createSupplierCost(t, "1000")
	debt := ts.derivedDebt(t)

	rec := ts.do(t, http.MethodPatch, "/api/debts/"+debt.ID.String(), authorization.RoleAccountant, map[string]any{
		"total_amount": "2000",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/debts/"+debt.ID.String(), authorization.RoleAccountant, map[string]any{
		"due_date": "2026-04-30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[debtdomain.Debt](t, rec)
	require.NotNil(t, updated.DueDate)

	rec = ts.do(t, http.MethodPatch, "/api/debts/"+debt.ID.String(), authorization.RoleAccountant, map[string]any{
		"due_date": "",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decodeData[debtdomain.Debt](t, rec).DueDate)
}

func TestClearingSupplierDropsDebt(t *testing.T) {
	ts := newTestServer(t)

	cost := ts.createSupplierCost(t, "1000")
	debt := ts.derivedDebt(t)

	rec := ts.do(t, http.MethodPut, "/api/costs/"+cost.ID.String(), authorization.RoleAccountant, map[string]any{
		"category": "material",
		"amount":   "1000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decodeData[costdomain.Cost](t, rec).SupplierID)
	assert.Nil(t, ledgertest.Debt(t, ts.db, debt.ID))
}

func TestManualDebtWithTransactionsIsProtected(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/debts", authorization.RoleAccountant, map[string]any{
		"partner_id":   ts.client.ID.String(),
		"type":         "receivable",
		"total_amount": "10000",
		"due_date":     "2026-05-01",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	debt := decodeData[debtdomain.Debt](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/transactions", authorization.RoleAccountant, map[string]any{
		"type":       "receipt",
		"partner_id": ts.client.ID.String(),
		"debt_id":    debt.ID.String(),
		"amount":     "2500",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tx := decodeData[transactiondomain.Transaction](t, rec)

	rec = ts.do(t, http.MethodDelete, "/api/debts/"+debt.ID.String(), authorization.RoleAccountant, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/transactions/"+tx.ID.String()+"/amend", authorization.RoleAccountant, map[string]any{
		"amount": "4000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	amended := decodeData[transactiondomain.Transaction](t, rec)
	assert.NotEqual(t, tx.ID, amended.ID)
	assert.Equal(t, int64(4000), ledgertest.Debt(t, ts.db, debt.ID).PaidAmount)

	rec = ts.do(t, http.MethodGet, "/api/partners/"+ts.client.ID.String()+"/balance", authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/transactions?debt_id="+debt.ID.String(), authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeData[transactiondomain.ListTransactionResponse](t, rec)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, amended.ID, list.Transactions[0].ID)
}

func TestTypeMismatchIsValidationError(t *testing.T) {
	ts := newTestServer(t)

	ts.createSupplierCost(t, "1000")
	debt := ts.derivedDebt(t)

	rec := ts.do(t, http.MethodPost, "/api/transactions", authorization.RoleAccountant, map[string]any{
		"type":       "receipt",
		"partner_id": ts.supplier.ID.String(),
		"debt_id":    debt.ID.String(),
		"amount":     "100",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "transaction_type_mismatch", payload.Errors[0].Code)
	assert.Equal(t, "type", payload.Errors[0].Field)
}

func TestValidationAndNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/costs", authorization.RoleAccountant, map[string]any{
		"parent_type": "contract",
		"parent_id":   ts.contract.ID.String(),
		"category":    "material",
		"amount":      "abc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	assert.Equal(t, "invalid_cost_amount", payload.Errors[0].Code)

	rec = ts.do(t, http.MethodGet, "/api/costs/12345", authorization.RoleEmployee, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/costs/abc", authorization.RoleEmployee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/transactions?date_from=yesterday", authorization.RoleEmployee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date_from", decodeError(t, rec).Errors[0].Code)

	rec = ts.do(t, http.MethodPost, "/api/costs", authorization.RoleAccountant, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t)

	ts.createSupplierCost(t, "5000000")

	rec := ts.do(t, http.MethodGet, "/api/contracts/"+ts.contract.ID.String()+"/cost-summary", authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decodeData[ledgerviewdomain.CostSummary](t, rec)
	assert.Equal(t, int64(5_000_000), summary.Total)
	require.Len(t, summary.ByCategory, 1)

	rec = ts.do(t, http.MethodGet, "/api/contracts/"+ts.contract.ID.String()+"/profitability", authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profit := decodeData[ledgerviewdomain.Profitability](t, rec)
	assert.Equal(t, int64(95_000_000), profit.Profit)
	require.True(t, profit.HasRatio)
	assert.Equal(t, "0.05", profit.CostRatio.String())

	rec = ts.do(t, http.MethodGet, "/api/projects/"+snowflake.ID(42).String()+"/profitability", authorization.RoleEmployee, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/cost-categories", authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeData[[]costdomain.CategoryInfo](t, rec))
}

func TestLedgerCheckAndRepair(t *testing.T) {
	ts := newTestServer(t)

	ts.createSupplierCost(t, "1000")
	debt := ts.derivedDebt(t)
	require.NoError(t, ts.db.Model(&debtdomain.Debt{}).Where("id = ?", debt.ID).Update("paid_amount", 700).Error)

	rec := ts.do(t, http.MethodGet, "/api/ledger/check", authorization.RoleAccountant, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeData[ledgerdomain.Report](t, rec)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, ledgerdomain.InvariantPaidSum, report.Violations[0].Invariant)

	rec = ts.do(t, http.MethodPost, "/api/ledger/repair", authorization.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeData[ledgerdomain.Report](t, rec).Repaired)
	assert.Equal(t, int64(0), ledgertest.Debt(t, ts.db, debt.ID).PaidAmount)
}

func TestPartnerLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.createSupplierCost(t, "1000")

	rec := ts.do(t, http.MethodPost, "/api/partners", authorization.RoleAccountant, map[string]any{
		"kind":  "supplier",
		"name":  "Cement Works",
		"email": "ops@cement.example",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	partner := decodeData[partnerdomain.Partner](t, rec)

	rec = ts.do(t, http.MethodPatch, "/api/partners/"+partner.ID.String(), authorization.RoleAccountant, map[string]any{
		"phone": "0901234567",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0901234567", decodeData[partnerdomain.Partner](t, rec).Phone)

	rec = ts.do(t, http.MethodDelete, "/api/partners/"+partner.ID.String(), authorization.RoleAccountant, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/partners/"+ts.supplier.ID.String(), authorization.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/partners/"+partner.ID.String(), authorization.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/partners?kind=supplier", authorization.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[partnerdomain.ListPartnerResponse](t, rec)
	require.Len(t, list.Partners, 1)
	assert.Equal(t, ts.supplier.ID, list.Partners[0].ID)
}

func TestMapErrorPartialFailure(t *testing.T) {
	err := &unit.PartialFailureError{
		Target: unit.Target{Invariant: ledgerdomain.InvariantCostDebtLink, Entity: ledgerdomain.EntityCost, EntityID: "7"},
		Step:   "insert derived debt",
		Err:    costdomain.ErrInvalidAmount,
	}

	status, payload := mapError(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "partial_failure", payload.Type)
	require.NotNil(t, payload.Failure)
	assert.Equal(t, "insert derived debt", payload.Failure.Step)
	assert.Equal(t, "7", payload.Failure.EntityID)
}
