package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// Storage persiste el resultado de cada ejecución del engine.
type Storage interface {
	// SaveOrderPlan persiste un plan de órdenes bajo el run ID dado.
	SaveOrderPlan(ctx context.Context, id string, plan domain.OrderPlan) error

	// SaveAllocation persiste una asignación con su régimen de mercado.
	SaveAllocation(ctx context.Context, rec domain.AllocationRecord) error

	// SaveSimulation persiste el resumen de un Monte Carlo (sin los trials).
	SaveSimulation(ctx context.Context, id string, summary domain.SimulationSummary) error

	// GetAllocations devuelve las asignaciones creadas en el rango dado, más recientes primero.
	GetAllocations(ctx context.Context, from, to time.Time) ([]domain.AllocationRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
