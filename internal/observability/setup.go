package observability

import (
	"context"

	"github.com/vendmach/vending-service/internal/infrastructure/observability"
)

// Setup initializes logging, metrics registration and tracing, returning
// the tracer shutdown hook. The /metrics endpoint is registered by the
// router.
func Setup(serviceName string) func(context.Context) error {
	observability.InitLogger()
	observability.InitMetrics()
	return observability.InitTracing(serviceName)
}
