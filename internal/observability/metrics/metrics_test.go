package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("debt_id", "123"),
		attribute.String("partner_id", "456"),
		attribute.String("transaction_type", "payment"),
		attribute.String("outcome", "failed"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("transaction_type"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordTransactionPosted(ctx, "payment")
		m.RecordTransactionReversed(ctx, "receipt")
		m.RecordDerivedDebtChange(ctx, "create")
		m.RecordCompensation(ctx, "debt", false)
		m.RecordInvariantRepair(ctx, "paid_sum", 2)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordCompensation(context.Background(), "cost", true)
	})
}
