package storage

// sqlite.go — run log del engine.
//
// Estrategia:
//   - `order_plans` + `plan_orders`: un plan por run, órdenes en tabla hija.
//   - `allocations` + `allocation_entries`: asignación con el régimen que la produjo.
//   - `simulations`: solo el resumen; los trials individuales no se persisten.
//   - Timestamps en unix ms (INTEGER): comparables y sin ambigüedad de formato.
//   - Prune automático al arrancar: runs > 90d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/allocengine/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_plans (
    id          TEXT PRIMARY KEY,
    created_at  INTEGER NOT NULL,
    mid_price   REAL    NOT NULL,
    target      REAL    NOT NULL,
    score       REAL    NOT NULL DEFAULT 0,
    slippage    REAL    NOT NULL DEFAULT 0,
    exec_prob   REAL    NOT NULL DEFAULT 0,
    iterations  INTEGER NOT NULL DEFAULT 0,
    reheats     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS plan_orders (
    plan_id  TEXT    NOT NULL REFERENCES order_plans(id) ON DELETE CASCADE,
    idx      INTEGER NOT NULL,
    price    REAL    NOT NULL,
    amount   REAL    NOT NULL,
    PRIMARY KEY (plan_id, idx)
);

CREATE TABLE IF NOT EXISTS allocations (
    id            TEXT PRIMARY KEY,
    created_at    INTEGER NOT NULL,
    capital       REAL    NOT NULL,
    branch        TEXT    NOT NULL,
    volatility    REAL    NOT NULL DEFAULT 0,
    correlation   REAL    NOT NULL DEFAULT 0,
    market_change REAL    NOT NULL DEFAULT 0,
    sentiment     REAL,
    eco_asset     INTEGER NOT NULL DEFAULT 0,
    clawback      INTEGER NOT NULL DEFAULT 0,
    expected_apy  REAL    NOT NULL DEFAULT 0,
    il_risk       REAL    NOT NULL DEFAULT 0,
    net_apy       REAL    NOT NULL DEFAULT 0,
    risk_stddev   REAL    NOT NULL DEFAULT 0,
    sharpe        REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS allocation_entries (
    allocation_id TEXT    NOT NULL REFERENCES allocations(id) ON DELETE CASCADE,
    idx           INTEGER NOT NULL,
    pool          TEXT    NOT NULL,
    weight        REAL    NOT NULL,
    amount        REAL    NOT NULL,
    PRIMARY KEY (allocation_id, idx)
);

CREATE TABLE IF NOT EXISTS simulations (
    id             TEXT PRIMARY KEY,
    created_at     INTEGER NOT NULL,
    trials         INTEGER NOT NULL,
    days           INTEGER NOT NULL,
    capital        REAL    NOT NULL,
    mean_return    REAL    NOT NULL DEFAULT 0,
    stddev         REAL    NOT NULL DEFAULT 0,
    min_return     REAL    NOT NULL DEFAULT 0,
    max_return     REAL    NOT NULL DEFAULT 0,
    p05            REAL    NOT NULL DEFAULT 0,
    p95            REAL    NOT NULL DEFAULT 0,
    success_rate   REAL    NOT NULL DEFAULT 0,
    sharpe         REAL    NOT NULL DEFAULT 0,
    execution_cost REAL    NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_plans_at ON order_plans(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alloc_at ON allocations(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sims_at  ON simulations(created_at DESC);
`

const retention = 90 * 24 * time.Hour // runs: 90 días

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: foreign keys: %w", err)
	}

	s := &SQLiteStorage{db: db, now: func() time.Time { return time.Now().UTC() }}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveOrderPlan persiste el plan y sus órdenes en una transacción.
func (s *SQLiteStorage) SaveOrderPlan(ctx context.Context, id string, plan domain.OrderPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveOrderPlan: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_plans
			(id, created_at, mid_price, target, score, slippage, exec_prob, iterations, reheats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.now().UnixMilli(), plan.MidPrice, plan.Target, plan.Score,
		plan.Slippage, plan.ExecutionProbability, plan.Iterations, plan.Reheats,
	); err != nil {
		return fmt.Errorf("storage.SaveOrderPlan: insert plan %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO plan_orders (plan_id, idx, price, amount) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveOrderPlan: prepare: %w", err)
	}
	defer stmt.Close()

	for i, o := range plan.Orders {
		if _, err := stmt.ExecContext(ctx, id, i, o.Price, o.Amount); err != nil {
			return fmt.Errorf("storage.SaveOrderPlan: insert order %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveOrderPlan: commit: %w", err)
	}
	return nil
}

// SaveAllocation persiste la asignación y su vector. CreatedAt cero = ahora.
func (s *SQLiteStorage) SaveAllocation(ctx context.Context, rec domain.AllocationRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	a, r := rec.Allocation, rec.Regime

	var sentiment *float64
	if r.Sentiment != nil {
		v := *r.Sentiment
		sentiment = &v
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveAllocation: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO allocations
			(id, created_at, capital, branch, volatility, correlation, market_change,
			 sentiment, eco_asset, clawback, expected_apy, il_risk, net_apy, risk_stddev, sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, createdAt.UnixMilli(), a.Capital, string(a.Branch),
		r.Volatility, r.ExternalCorrelation, r.ExternalMarketChange,
		sentiment, boolInt(r.IsEcoAsset), boolInt(r.IsClawbackEnabled),
		a.Projection.ExpectedAPY, a.Projection.ImpermanentLossRisk, a.Projection.NetAPY,
		a.Projection.RiskStdDev, a.Projection.SharpeRatio,
	); err != nil {
		return fmt.Errorf("storage.SaveAllocation: insert %s: %w", rec.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO allocation_entries (allocation_id, idx, pool, weight, amount) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveAllocation: prepare: %w", err)
	}
	defer stmt.Close()

	for i, e := range a.Vector {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, e.Pool, e.Weight, e.Amount); err != nil {
			return fmt.Errorf("storage.SaveAllocation: insert entry %s: %w", e.Pool, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveAllocation: commit: %w", err)
	}
	return nil
}

// SaveSimulation persiste el resumen del Monte Carlo.
func (s *SQLiteStorage) SaveSimulation(ctx context.Context, id string, sum domain.SimulationSummary) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO simulations
			(id, created_at, trials, days, capital, mean_return, stddev, min_return, max_return,
			 p05, p95, success_rate, sharpe, execution_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.now().UnixMilli(), sum.Trials, sum.Days, sum.InitialCapital,
		sum.Mean, sum.StdDev, sum.Min, sum.Max, sum.P05, sum.P95,
		sum.SuccessRate, sum.Sharpe, sum.MeanExecutionCost,
	); err != nil {
		return fmt.Errorf("storage.SaveSimulation: insert %s: %w", id, err)
	}
	return nil
}

// GetAllocations devuelve las asignaciones con created_at en [from, to],
// más recientes primero, con su vector completo.
func (s *SQLiteStorage) GetAllocations(ctx context.Context, from, to time.Time) ([]domain.AllocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, capital, branch, volatility, correlation, market_change,
		       sentiment, eco_asset, clawback, expected_apy, il_risk, net_apy, risk_stddev, sharpe
		FROM allocations
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC, id
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage.GetAllocations: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.AllocationRecord
	for rows.Next() {
		var rec domain.AllocationRecord
		var createdAt int64
		var branch string
		var sentiment sql.NullFloat64
		var eco, clawback int
		a, r := &rec.Allocation, &rec.Regime

		if err := rows.Scan(
			&rec.ID, &createdAt, &a.Capital, &branch,
			&r.Volatility, &r.ExternalCorrelation, &r.ExternalMarketChange,
			&sentiment, &eco, &clawback,
			&a.Projection.ExpectedAPY, &a.Projection.ImpermanentLossRisk, &a.Projection.NetAPY,
			&a.Projection.RiskStdDev, &a.Projection.SharpeRatio,
		); err != nil {
			return nil, fmt.Errorf("storage.GetAllocations: scan row: %w", err)
		}

		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		a.Branch = domain.Branch(branch)
		if sentiment.Valid {
			*r = r.WithSentiment(sentiment.Float64)
		}
		r.IsEcoAsset = eco == 1
		r.IsClawbackEnabled = clawback == 1
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetAllocations: rows: %w", err)
	}
	rows.Close()

	for i := range recs {
		vec, err := s.allocationEntries(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
		recs[i].Allocation.Vector = vec
	}
	return recs, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStorage) allocationEntries(ctx context.Context, id string) (domain.AllocationVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pool, weight, amount FROM allocation_entries WHERE allocation_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetAllocations: query entries %s: %w", id, err)
	}
	defer rows.Close()

	var vec domain.AllocationVector
	for rows.Next() {
		var e domain.AllocationEntry
		if err := rows.Scan(&e.Pool, &e.Weight, &e.Amount); err != nil {
			return nil, fmt.Errorf("storage.GetAllocations: scan entry: %w", err)
		}
		vec = append(vec, e)
	}
	return vec, rows.Err()
}

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := s.now().Add(-retention).UnixMilli()
	s.db.ExecContext(ctx, `DELETE FROM order_plans WHERE created_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM allocations WHERE created_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM simulations WHERE created_at < ?`, cutoff)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
