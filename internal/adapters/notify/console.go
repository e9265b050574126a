package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Reporter.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// ReportOrders imprime el plan de órdenes.
func (c *Console) ReportOrders(_ context.Context, plan domain.OrderPlan) error {
	now := time.Now().Format("15:04:05")
	if len(plan.Orders) == 0 {
		fmt.Fprintf(c.out, "[%s] no orders\n", now)
		return nil
	}

	if !c.table {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %d orders → %.2f @ avg %.6f slip %.4f%% fill %.1f%% score %.2f",
			now, len(plan.Orders), plan.Orders.TotalAmount(), plan.Orders.WeightedAvgPrice(),
			plan.Slippage*100, plan.ExecutionProbability*100, plan.Score)
		fmt.Fprintln(c.out, sb.String())
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] order plan — target %.2f, mid %.6f\n", now, plan.Target, plan.MidPrice)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Price", "Amount", "Dev bp", "Share")
	for i, o := range plan.Orders {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.6f", o.Price),
			fmt.Sprintf("%.2f", o.Amount),
			fmt.Sprintf("%+.1f", (o.Price/plan.MidPrice-1)*1e4),
			fmt.Sprintf("%.1f%%", pct(o.Amount, plan.Target)),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  Avg price %.6f | slippage %.4f%% | fill prob %.1f%% | score %.2f\n",
		plan.Orders.WeightedAvgPrice(), plan.Slippage*100, plan.ExecutionProbability*100, plan.Score)
	fmt.Fprintf(c.out, "  %d iterations, %d reheats, %d accepted moves\n\n", plan.Iterations, plan.Reheats, plan.Accepted)
	return nil
}

// ReportAllocation imprime el vector de asignación y la proyección.
func (c *Console) ReportAllocation(_ context.Context, a domain.Allocation) error {
	now := time.Now().Format("15:04:05")
	p := a.Projection

	if !c.table {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %s $%.0f", now, branchLabel(a.Branch), a.Capital)
		for _, e := range a.Vector {
			fmt.Fprintf(&sb, " | %s %.1f%%", compactName(e.Pool, 20), e.Weight*100)
		}
		fmt.Fprintf(&sb, " | net %.2f%% sharpe %.2f", p.NetAPY*100, p.SharpeRatio)
		fmt.Fprintln(c.out, sb.String())
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] allocation — %s, capital $%.2f\n", now, branchLabel(a.Branch), a.Capital)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pool", "Weight", "Amount")
	for i, e := range a.Vector {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(e.Pool, 30),
			fmt.Sprintf("%.2f%%", e.Weight*100),
			fmt.Sprintf("$%.2f", e.Amount),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  Expected APY %.2f%% | IL risk %.2f%% | net APY %.2f%%\n",
		p.ExpectedAPY*100, p.ImpermanentLossRisk*100, p.NetAPY*100)
	fmt.Fprintf(c.out, "  Risk σ %.3f | Sharpe %.2f\n\n", p.RiskStdDev, p.SharpeRatio)
	return nil
}

// ReportSimulation imprime la distribución de retornos del Monte Carlo.
func (c *Console) ReportSimulation(_ context.Context, s domain.SimulationSummary) error {
	now := time.Now().Format("15:04:05")

	if !c.table {
		fmt.Fprintf(c.out, "[%s] %d trials × %dd → mean %+.3f%% σ %.3f%% p05 %+.3f%% p95 %+.3f%% win %.0f%%\n",
			now, s.Trials, s.Days, s.Mean*100, s.StdDev*100, s.P05*100, s.P95*100, s.SuccessRate*100)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] Monte Carlo — %d trials × %d days, capital $%.2f\n", now, s.Trials, s.Days, s.InitialCapital)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	rows := [][2]string{
		{"Mean return", fmt.Sprintf("%+.4f%%", s.Mean*100)},
		{"Std dev", fmt.Sprintf("%.4f%%", s.StdDev*100)},
		{"Min", fmt.Sprintf("%+.4f%%", s.Min*100)},
		{"P05", fmt.Sprintf("%+.4f%%", s.P05*100)},
		{"P95", fmt.Sprintf("%+.4f%%", s.P95*100)},
		{"Max", fmt.Sprintf("%+.4f%%", s.Max*100)},
		{"Success rate", fmt.Sprintf("%.1f%%", s.SuccessRate*100)},
		{"Sharpe", fmt.Sprintf("%.2f", s.Sharpe)},
		{"Exec cost/trial", fmt.Sprintf("$%.2f", s.MeanExecutionCost)},
	}
	for _, r := range rows {
		table.Append(r[0], r[1])
	}
	table.Render()
	fmt.Fprintln(c.out)
	return nil
}

// ReportHistory imprime las asignaciones persistidas.
func (c *Console) ReportHistory(_ context.Context, recs []domain.AllocationRecord) error {
	if len(recs) == 0 {
		fmt.Fprintln(c.out, "No allocations in range")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Run", "Branch", "Vol", "Capital", "Net APY", "Sharpe", "Top pool")
	for _, r := range recs {
		top := "-"
		if e, ok := largest(r.Allocation.Vector); ok {
			top = fmt.Sprintf("%s %.0f%%", compactName(e.Pool, 18), e.Weight*100)
		}
		table.Append(
			r.CreatedAt.Local().Format("01-02 15:04"),
			shortID(r.ID),
			branchLabel(r.Allocation.Branch),
			fmt.Sprintf("%.2f", r.Regime.Volatility),
			fmt.Sprintf("$%.0f", r.Allocation.Capital),
			fmt.Sprintf("%.2f%%", r.Allocation.Projection.NetAPY*100),
			fmt.Sprintf("%.2f", r.Allocation.Projection.SharpeRatio),
			top,
		)
	}
	table.Render()
	return nil
}

// --- helpers ---

func branchLabel(b domain.Branch) string {
	if b == domain.BranchHighVolatility {
		return "HIGH-VOL"
	}
	return "BALANCED"
}

func largest(v domain.AllocationVector) (domain.AllocationEntry, bool) {
	if len(v) == 0 {
		return domain.AllocationEntry{}, false
	}
	best := v[0]
	for _, e := range v[1:] {
		if e.Weight > best.Weight {
			best = e
		}
	}
	return best, true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func pct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
