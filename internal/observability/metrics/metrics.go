package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes ledger-level instruments.
type Metrics struct {
	transactionsPosted   metric.Int64Counter
	transactionsReversed metric.Int64Counter
	derivedDebtChanges   metric.Int64Counter
	compensations        metric.Int64Counter
	ledgerRepairs        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "backoffice"
	}
	meter := provider.Meter(name)

	transactionsPosted, err := meter.Int64Counter("backoffice_transactions_posted_total")
	if err != nil {
		return nil, err
	}
	transactionsReversed, err := meter.Int64Counter("backoffice_transactions_reversed_total")
	if err != nil {
		return nil, err
	}
	derivedDebtChanges, err := meter.Int64Counter("backoffice_derived_debt_changes_total")
	if err != nil {
		return nil, err
	}
	compensations, err := meter.Int64Counter("backoffice_compensations_total")
	if err != nil {
		return nil, err
	}
	ledgerRepairs, err := meter.Int64Counter("backoffice_ledger_repairs_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		transactionsPosted:   transactionsPosted,
		transactionsReversed: transactionsReversed,
		derivedDebtChanges:   derivedDebtChanges,
		compensations:        compensations,
		ledgerRepairs:        ledgerRepairs,
	}, nil
}

// RecordTransactionPosted counts a posted payment or receipt.
func (m *Metrics) RecordTransactionPosted(ctx context.Context, txType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("transaction_type", strings.TrimSpace(txType)))
	m.transactionsPosted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransactionReversed counts a deleted transaction.
func (m *Metrics) RecordTransactionReversed(ctx context.Context, txType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("transaction_type", strings.TrimSpace(txType)))
	m.transactionsReversed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDerivedDebtChange counts create, update and delete of cost-derived debts.
func (m *Metrics) RecordDerivedDebtChange(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.derivedDebtChanges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCompensation counts undo attempts of a non-transactional write unit.
func (m *Metrics) RecordCompensation(ctx context.Context, entity string, succeeded bool) {
	if m == nil {
		return
	}
	outcome := "succeeded"
	if !succeeded {
		outcome = "failed"
	}
	attrs := FilterAttributes(
		attribute.String("entity", strings.TrimSpace(entity)),
		attribute.String("outcome", outcome),
	)
	m.compensations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInvariantRepair counts drift items the reconciler fixed. Open drift is
// reported as a gauge by the ledger audit job, so it is not counted here.
func (m *Metrics) RecordInvariantRepair(ctx context.Context, invariant string, n int) {
	if m == nil || n <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("invariant", strings.TrimSpace(invariant)))
	m.ledgerRepairs.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"transaction_type": {},
	"action":           {},
	"entity":           {},
	"outcome":          {},
	"invariant":        {},
	"endpoint":         {},
	"status_code":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
