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

const exportInterval = 10 * time.Second

// Config configures the OTLP meter provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

type counter int

const (
	documentsIssued counter = iota
	documentsVoided
	chronologyRejected
	creditOverIssued
	rateLimitAllowed
	rateLimitDenied
	counterCount
)

var counterDefs = [counterCount]struct {
	name        string
	description string
}{
	documentsIssued:    {"acont_documents_issued_total", "Invoices and credit notes that received a number."},
	documentsVoided:    {"acont_documents_voided_total", "Issued documents that were voided."},
	chronologyRejected: {"acont_chronology_rejected_total", "Documents refused because of their dates."},
	creditOverIssued:   {"acont_credit_over_issued_total", "Credit notes pushing the credited total past the invoice."},
	rateLimitAllowed:   {"acont_rate_limit_allowed_total", "Issuance requests let through by the limiter."},
	rateLimitDenied:    {"acont_rate_limit_denied_total", "Issuance requests refused by the limiter."},
}

// Metrics holds the OTLP counters for document events. A nil *Metrics
// records nothing.
type Metrics struct {
	counters [counterCount]metric.Int64Counter
}

// NewProvider registers the global meter provider. It is a no-op provider
// unless export is enabled.
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
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
	}
	if log != nil {
		log.Info("metrics export enabled",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
			zap.Duration("interval", exportInterval),
		)
	}
	return provider, nil
}

// New creates the document counters on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "acont"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	for i, def := range counterDefs {
		c, err := meter.Int64Counter(def.name, metric.WithDescription(def.description))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.name, err)
		}
		m.counters[i] = c
	}
	return m, nil
}

func (m *Metrics) add(ctx context.Context, c counter, attrs ...attribute.KeyValue) {
	if m == nil || m.counters[c] == nil {
		return
	}
	m.counters[c].Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func (m *Metrics) RecordDocumentIssued(ctx context.Context, merchantID, docType string) {
	m.add(ctx, documentsIssued, label("merchant_id", merchantID), label("doc_type", docType))
}

func (m *Metrics) RecordDocumentVoided(ctx context.Context, merchantID, docType string) {
	m.add(ctx, documentsVoided, label("merchant_id", merchantID), label("doc_type", docType))
}

// RecordChronologyRejected is labelled by rule, not merchant.
func (m *Metrics) RecordChronologyRejected(ctx context.Context, docType, rule string) {
	m.add(ctx, chronologyRejected, label("doc_type", docType), label("reason", rule))
}

func (m *Metrics) RecordCreditOverIssued(ctx context.Context, merchantID string) {
	m.add(ctx, creditOverIssued, label("merchant_id", merchantID))
}

func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, merchantID, endpoint string) {
	m.add(ctx, rateLimitAllowed, label("merchant_id", merchantID), label("endpoint", endpoint))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, merchantID, endpoint, reason string) {
	m.add(ctx, rateLimitDenied, label("merchant_id", merchantID), label("endpoint", endpoint), label("reason", reason))
}

func label(key, value string) attribute.KeyValue {
	return attribute.String(key, strings.TrimSpace(value))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// allowedLabels keeps counter cardinality bounded. Document and client ids
// never become labels.
var allowedLabels = map[attribute.Key]struct{}{
	"merchant_id": {},
	"doc_type":    {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabels[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
