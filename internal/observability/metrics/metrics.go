package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
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

const (
	CascadeOutcomeApplied = "applied"
	CascadeOutcomeSkipped = "skipped"
	CascadeOutcomeFailed  = "failed"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes workflow instruments on both Prometheus and the OTel meter.
type Metrics struct {
	ordersCreated   *prometheus.CounterVec
	cascades        *prometheus.CounterVec
	stockRejections prometheus.Counter
	docsDeleted     *prometheus.CounterVec

	otelOrders   metric.Int64Counter
	otelCascades metric.Int64Counter
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

// New registers the workflow instruments on the default Prometheus registry.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	return NewWithRegisterer(prometheus.DefaultRegisterer, cfg, provider)
}

func NewWithRegisterer(registerer prometheus.Registerer, cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if provider == nil {
		provider = noop.NewMeterProvider()
	}

	constLabels := prometheus.Labels{
		"service": serviceName(cfg),
		"env":     environment(cfg),
	}

	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pressroom_orders_created_total",
		Help:        "Orders created by origin (direct, invoice_paid).",
		ConstLabels: constLabels,
	}, []string{"source"})
	cascades := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pressroom_cascade_total",
		Help:        "Status-driven cascades by transition and outcome.",
		ConstLabels: constLabels,
	}, []string{"transition", "outcome"})
	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pressroom_stock_rejections_total",
		Help:        "Order creations rejected for insufficient stock.",
		ConstLabels: constLabels,
	})
	docsDeleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pressroom_documents_deleted_total",
		Help:        "Deleted quotes, invoices and orders.",
		ConstLabels: constLabels,
	}, []string{"kind"})

	for _, c := range []prometheus.Collector{ordersCreated, cascades, stockRejections, docsDeleted} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	meter := provider.Meter(serviceName(cfg))
	otelOrders, err := meter.Int64Counter("pressroom_orders_created")
	if err != nil {
		return nil, err
	}
	otelCascades, err := meter.Int64Counter("pressroom_cascades")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersCreated:   ordersCreated,
		cascades:        cascades,
		stockRejections: stockRejections,
		docsDeleted:     docsDeleted,
		otelOrders:      otelOrders,
		otelCascades:    otelCascades,
	}, nil
}

// RecordOrderCreated counts a new order.
func (m *Metrics) RecordOrderCreated(ctx context.Context, orgID, source string) {
	if m == nil {
		return
	}
	source = strings.TrimSpace(source)
	m.ordersCreated.WithLabelValues(source).Inc()
	attrs := FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("source", source),
	)
	m.otelOrders.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCascade counts a cascade attempt.
func (m *Metrics) RecordCascade(ctx context.Context, transition, outcome string) {
	if m == nil {
		return
	}
	m.cascades.WithLabelValues(transition, outcome).Inc()
	attrs := FilterAttributes(
		attribute.String("transition", transition),
		attribute.String("outcome", outcome),
	)
	m.otelCascades.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordStockRejection() {
	if m == nil {
		return
	}
	m.stockRejections.Inc()
}

func (m *Metrics) RecordDeleted(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.docsDeleted.WithLabelValues(kind).Add(float64(n))
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
	"org_id":      {},
	"endpoint":    {},
	"status_code": {},
	"source":      {},
	"transition":  {},
	"outcome":     {},
	"kind":        {},
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

func serviceName(cfg Config) string {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		return "pressroom"
	}
	return name
}

func environment(cfg Config) string {
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		return "unknown"
	}
	return env
}
