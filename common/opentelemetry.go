package common

import (
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// InitOpentelemetry wires the uptrace exporter and the xray propagator
// for a binary. Libraries should take a trace.Tracer instead.
func InitOpentelemetry(cfg OtlpConfig) error {
	var attributes []attribute.KeyValue
	attributes = append(attributes, semconv.FaaSTriggerKey.String(cfg.Key()))

	var options []uptrace.Option
	options = append(options, uptrace.WithDSN(cfg.Dsn()))
	options = append(options, uptrace.WithTracingEnabled(true))
	options = append(options, uptrace.WithLoggingEnabled(true))
	options = append(options,
		uptrace.WithServiceName(cfg.ServiceName()),
		uptrace.WithDeploymentEnvironment(cfg.Environment()),
		uptrace.WithServiceVersion(cfg.Version()),
		uptrace.WithResourceAttributes(attributes...),
	)
	uptrace.ConfigureOpentelemetry(options...)

	otel.SetTextMapPropagator(xray.Propagator{})
	return nil
}
