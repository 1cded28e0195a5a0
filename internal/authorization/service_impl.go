package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	obscontext "github.com/smallbiznis/backoffice/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an enforcer whose policies persist in the casbin_rule
// table. Built-in role policies are seeded on every start.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer builds an enforcer holding only the built-in policies.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}

	if adapter != nil {
		enforcer.EnableAutoSave(true)
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !knownRole(role) {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("request_id", obscontext.RequestIDFromContext(ctx)),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Roles() []string {
	return []string{RoleAdmin, RoleAccountant, RoleEmployee}
}

func knownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAccountant, RoleEmployee:
		return true
	default:
		return false
	}
}

func subject(role string) string {
	return "role:" + role
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Employees read everything.
		{subject(RoleEmployee), "*", ActionView},

		// Accountants book and correct financial records.
		{subject(RoleAccountant), ObjectPartner, ActionCreate},
		{subject(RoleAccountant), ObjectPartner, ActionUpdate},
		{subject(RoleAccountant), ObjectCost, ActionCreate},
		{subject(RoleAccountant), ObjectCost, ActionUpdate},
		{subject(RoleAccountant), ObjectCost, ActionDelete},
		{subject(RoleAccountant), ObjectDebt, ActionCreate},
		{subject(RoleAccountant), ObjectDebt, ActionUpdate},
		{subject(RoleAccountant), ObjectDebt, ActionDelete},
		{subject(RoleAccountant), ObjectTransaction, ActionCreate},
		{subject(RoleAccountant), ObjectTransaction, ActionUpdate},
		{subject(RoleAccountant), ObjectTransaction, ActionDelete},
		{subject(RoleAccountant), ObjectLedger, ActionLedgerCheck},

		// Admins own the registry and ledger repair.
		{subject(RoleAdmin), ObjectPartner, ActionDelete},
		{subject(RoleAdmin), ObjectContract, ActionCreate},
		{subject(RoleAdmin), ObjectProject, ActionCreate},
		{subject(RoleAdmin), ObjectLedger, ActionLedgerRepair},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	grouping := [][]string{
		{subject(RoleAccountant), subject(RoleEmployee)},
		{subject(RoleAdmin), subject(RoleAccountant)},
	}
	for _, rule := range grouping {
		if _, err := enforcer.AddGroupingPolicy(rule); err != nil {
			return err
		}
	}
	return nil
}
