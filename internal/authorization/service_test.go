package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		role    string
		object  string
		action  string
		allowed bool
	}{
		{RoleEmployee, ObjectDebt, ActionView, true},
		{RoleEmployee, ObjectReport, ActionView, true},
		{RoleEmployee, ObjectTransaction, ActionCreate, false},
		{RoleEmployee, ObjectCost, ActionDelete, false},
		{RoleAccountant, ObjectTransaction, ActionCreate, true},
		{RoleAccountant, ObjectCost, ActionDelete, true},
		{RoleAccountant, ObjectCost, ActionView, true},
		{RoleAccountant, ObjectLedger, ActionLedgerCheck, true},
		{RoleAccountant, ObjectLedger, ActionLedgerRepair, false},
		{RoleAccountant, ObjectContract, ActionCreate, false},
		{RoleAdmin, ObjectContract, ActionCreate, true},
		{RoleAdmin, ObjectDebt, ActionDelete, true},
		{RoleAdmin, ObjectLedger, ActionLedgerRepair, true},
		{RoleAdmin, ObjectPartner, ActionView, true},
	}
	for _, tc := range cases {
		t.Run(tc.role+"/"+tc.object+"/"+tc.action, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.role, tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "owner", ObjectDebt, ActionView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "", ObjectDebt, ActionView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, RoleAdmin, " ", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, RoleAdmin, ObjectDebt, ""), ErrInvalidAction)
	assert.NoError(t, svc.Authorize(ctx, " Accountant ", ObjectDebt, ActionCreate))
}

func TestRoles(t *testing.T) {
	svc := newTestService(t)
	assert.ElementsMatch(t, []string{RoleAdmin, RoleAccountant, RoleEmployee}, svc.Roles())
}
