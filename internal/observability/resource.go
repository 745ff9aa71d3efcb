package observability

import (
	"context"
	"fmt"

	"github.com/pedalacom/catalog-api/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

func newServiceResource(ctx context.Context, cfg *config.Config, signal string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
			attribute.String("db.system", cfg.DatabaseDriver),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s resource: %w", signal, err)
	}
	return res, nil
}
