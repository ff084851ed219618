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

// Metrics exposes application-level instruments for the tracking engine.
type Metrics struct {
	clicksRecorded      metric.Int64Counter
	conversionsRecorded metric.Int64Counter
	redirectRejected    metric.Int64Counter
	liveSubscribers     metric.Int64UpDownCounter
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

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "linkpulse"
	}
	meter := provider.Meter(name)

	clicksRecorded, err := meter.Int64Counter("linkpulse_clicks_total")
	if err != nil {
		return nil, err
	}
	conversionsRecorded, err := meter.Int64Counter("linkpulse_conversions_total")
	if err != nil {
		return nil, err
	}
	redirectRejected, err := meter.Int64Counter("linkpulse_redirects_rejected_total")
	if err != nil {
		return nil, err
	}
	liveSubscribers, err := meter.Int64UpDownCounter("linkpulse_live_subscribers")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		clicksRecorded:      clicksRecorded,
		conversionsRecorded: conversionsRecorded,
		redirectRejected:    redirectRejected,
		liveSubscribers:     liveSubscribers,
	}, nil
}

// RecordClick counts an accepted redirect, labeled by device class.
func (m *Metrics) RecordClick(ctx context.Context, deviceType string) {
	if m == nil {
		return
	}
	m.clicksRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("device_type", deviceType)))
}

// RecordConversion counts a recorded conversion.
func (m *Metrics) RecordConversion(ctx context.Context) {
	if m == nil {
		return
	}
	m.conversionsRecorded.Add(ctx, 1)
}

// RecordRejectedRedirect counts a 404/410 resolution, labeled by reason.
func (m *Metrics) RecordRejectedRedirect(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.redirectRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// SubscriberConnected tracks an open live-event stream.
func (m *Metrics) SubscriberConnected(ctx context.Context) {
	if m == nil {
		return
	}
	m.liveSubscribers.Add(ctx, 1)
}

// SubscriberDisconnected tracks a closed live-event stream.
func (m *Metrics) SubscriberDisconnected(ctx context.Context) {
	if m == nil {
		return
	}
	m.liveSubscribers.Add(ctx, -1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
