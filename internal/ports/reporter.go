package ports

import (
	"context"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// Reporter presenta los resultados al usuario.
// En la implementación de consola, imprime tablas formateadas.
type Reporter interface {
	ReportOrders(ctx context.Context, plan domain.OrderPlan) error
	ReportAllocation(ctx context.Context, alloc domain.Allocation) error
	ReportSimulation(ctx context.Context, summary domain.SimulationSummary) error
	ReportHistory(ctx context.Context, records []domain.AllocationRecord) error
}
