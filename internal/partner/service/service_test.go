package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/ledgertest"
	"github.com/smallbiznis/backoffice/internal/partner/domain"
	"github.com/smallbiznis/backoffice/internal/partner/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *snowflake.Node, domain.Service) {
	t.Helper()
	db := ledgertest.OpenDB(t)
	node := ledgertest.Node(t)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(ledgertest.Epoch),
		Repo:  repository.Provide(),
	})
	return db, node, svc
}

func TestCreatePartner(t *testing.T) {
	_, _, svc := setup(t)

	p, err := svc.Create(context.Background(), domain.CreatePartnerRequest{
		Kind:     "Supplier",
		Name:     "  Hoa Phat Steel ",
		Email:    "sales@hoaphat.example",
		Metadata: map[string]any{"tax_code": "0101"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindSupplier, p.Kind)
	assert.Equal(t, "Hoa Phat Steel", p.Name)

	got, err := svc.GetByID(context.Background(), domain.GetPartnerRequest{ID: p.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "sales@hoaphat.example", got.Email)
	assert.Equal(t, "0101", got.Metadata["tax_code"])
}

func TestCreatePartnerValidation(t *testing.T) {
	_, _, svc := setup(t)

	_, err := svc.Create(context.Background(), domain.CreatePartnerRequest{Kind: "vendor", Name: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidKind)

	_, err = svc.Create(context.Background(), domain.CreatePartnerRequest{Kind: "client", Name: "  "})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(context.Background(), domain.CreatePartnerRequest{Kind: "client", Name: "x", Email: "not-an-email"})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestUpdatePartner(t *testing.T) {
	_, _, svc := setup(t)
	p, err := svc.Create(context.Background(), domain.CreatePartnerRequest{Kind: "client", Name: "Acme"})
	require.NoError(t, err)

	name := "Acme Holdings"
	phone := "+84 28 0000 0000"
	updated, err := svc.Update(context.Background(), domain.UpdatePartnerRequest{ID: p.ID.String(), Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, domain.KindClient, updated.Kind)

	_, err = svc.Update(context.Background(), domain.UpdatePartnerRequest{ID: "123", Name: &name})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeletePartnerInUse(t *testing.T) {
	db, node, svc := setup(t)
	p, err := svc.Create(context.Background(), domain.CreatePartnerRequest{Kind: "client", Name: "Acme"})
	require.NoError(t, err)
	debt := ledgertest.SeedDebt(t, db, debtdomain.Debt{
		ID:          node.Generate(),
		PartnerID:   p.ID,
		Type:        debtdomain.TypeReceivable,
		TotalAmount: 10,
	})

	err = svc.Delete(context.Background(), domain.DeletePartnerRequest{ID: p.ID.String()})
	require.ErrorIs(t, err, domain.ErrPartnerInUse)

	require.NoError(t, db.Exec(`DELETE FROM debts WHERE id = ?`, debt.ID).Error)
	require.NoError(t, svc.Delete(context.Background(), domain.DeletePartnerRequest{ID: p.ID.String()}))

	_, err = svc.GetByID(context.Background(), domain.GetPartnerRequest{ID: p.ID.String()})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPartners(t *testing.T) {
	_, _, svc := setup(t)
	for _, req := range []domain.CreatePartnerRequest{
		{Kind: "client", Name: "Acme"},
		{Kind: "supplier", Name: "Acme Cement"},
		{Kind: "supplier", Name: "Delta Sand"},
	} {
		_, err := svc.Create(context.Background(), req)
		require.NoError(t, err)
	}

	resp, err := svc.List(context.Background(), domain.ListPartnerRequest{Kind: "supplier"})
	require.NoError(t, err)
	assert.Len(t, resp.Partners, 2)

	resp, err = svc.List(context.Background(), domain.ListPartnerRequest{Name: "acme"})
	require.NoError(t, err)
	assert.Len(t, resp.Partners, 2)

	resp, err = svc.List(context.Background(), domain.ListPartnerRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Partners, 2)
	assert.True(t, resp.HasMore)
	require.NotEmpty(t, resp.NextPageToken)

	next, err := svc.List(context.Background(), domain.ListPartnerRequest{PageSize: 2, PageToken: resp.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, next.Partners, 1)
	assert.False(t, next.HasMore)
}
