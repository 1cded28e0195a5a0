// Package ledgertest provides an in-memory ledger store and fixtures for tests.
package ledgertest

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/backoffice/internal/config"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/migration"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Epoch is the fixed start time of fake clocks in tests.
var Epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// OpenDB opens a private in-memory sqlite database with every ledger table.
// The pool is limited to one connection, so code under test must do all work
// of a write unit through the unit's handle.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migration.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return node
}

// Config returns a ledger configuration with the given write mode and orphan policy.
func Config(writeMode, orphanPolicy string) config.Config {
	return config.Config{
		AppName:     "backoffice",
		Environment: "test",
		Ledger: config.LedgerConfig{
			WriteMode:     writeMode,
			OrphanPolicy:  orphanPolicy,
			CurrencyScale: 0,
			LockTTL:       time.Second,
			LockWait:      time.Second,
		},
	}
}

func SeedPartner(t testing.TB, db *gorm.DB, node *snowflake.Node, kind partnerdomain.Kind, name string) partnerdomain.Partner {
	t.Helper()
	p := partnerdomain.Partner{
		ID:        node.Generate(),
		Kind:      kind,
		Name:      name,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	return p
}

func SeedContract(t testing.TB, db *gorm.DB, node *snowflake.Node, name string, totalValue int64) registrydomain.Contract {
	t.Helper()
	c := registrydomain.Contract{
		ID:         node.Generate(),
		Code:       "C-" + node.Generate().String(),
		Name:       name,
		TotalValue: totalValue,
		CreatedAt:  Epoch,
		UpdatedAt:  Epoch,
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	return c
}

func SeedProject(t testing.TB, db *gorm.DB, node *snowflake.Node, name string, totalValue int64) registrydomain.Project {
	t.Helper()
	p := registrydomain.Project{
		ID:         node.Generate(),
		Code:       "P-" + node.Generate().String(),
		Name:       name,
		TotalValue: totalValue,
		CreatedAt:  Epoch,
		UpdatedAt:  Epoch,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}

// SeedDebt inserts a debt directly, bypassing the services.
func SeedDebt(t testing.TB, db *gorm.DB, debt debtdomain.Debt) debtdomain.Debt {
	t.Helper()
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = Epoch
		debt.UpdatedAt = Epoch
	}
	if err := db.Create(&debt).Error; err != nil {
		t.Fatalf("seed debt: %v", err)
	}
	return debt
}

// Debt reloads a debt, or returns nil when it is gone.
func Debt(t testing.TB, db *gorm.DB, id snowflake.ID) *debtdomain.Debt {
	t.Helper()
	var debts []debtdomain.Debt
	if err := db.Where("id = ?", id).Find(&debts).Error; err != nil {
		t.Fatalf("load debt: %v", err)
	}
	if len(debts) == 0 {
		return nil
	}
	return &debts[0]
}

// DebtsForCost lists the debts derived from a cost.
func DebtsForCost(t testing.TB, db *gorm.DB, costID snowflake.ID) []debtdomain.Debt {
	t.Helper()
	var debts []debtdomain.Debt
	if err := db.Where("source_cost_id = ?", costID).Find(&debts).Error; err != nil {
		t.Fatalf("load derived debts: %v", err)
	}
	return debts
}

// TransactionSum totals live transactions of a debt.
func TransactionSum(t testing.TB, db *gorm.DB, debtID snowflake.ID) int64 {
	t.Helper()
	var sum int64
	if err := db.Raw(`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE debt_id = ?`, debtID).Scan(&sum).Error; err != nil {
		t.Fatalf("sum transactions: %v", err)
	}
	return sum
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
