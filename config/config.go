package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/allocengine/internal/adapters/clob"
	"github.com/alejandrodnm/allocengine/internal/allocator"
	"github.com/alejandrodnm/allocengine/internal/application/engine"
	"github.com/alejandrodnm/allocengine/internal/optimizer"
	"github.com/alejandrodnm/allocengine/internal/simulation"
)

// Config es la configuración completa del engine.
type Config struct {
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Allocator  AllocatorConfig  `yaml:"allocator"`
	Simulation SimulationConfig `yaml:"simulation"`
	Engine     EngineConfig     `yaml:"engine"`
	Market     MarketConfig     `yaml:"market"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// OptimizerConfig expone las constantes del optimizer. Los ceros usan el default.
type OptimizerConfig struct {
	MaxIterations      int     `yaml:"max_iterations"`
	InitialTemperature float64 `yaml:"initial_temperature"`
	CoolingRate        float64 `yaml:"cooling_rate"`
	MinTemperature     float64 `yaml:"min_temperature"`
	BaseSpreadBP       float64 `yaml:"base_spread_bp"`
	MinOrders          int     `yaml:"min_orders"`
	MaxOrders          int     `yaml:"max_orders"`
	MinOrderAmount     float64 `yaml:"min_order_amount"`
	DeadlineMs         int     `yaml:"deadline_ms"` // 0 = sin límite
	Seed               uint64  `yaml:"seed"`
}

// AllocatorConfig contiene los overrides de gobernanza del allocator.
type AllocatorConfig struct {
	HighVolThreshold        float64 `yaml:"high_vol_threshold"`
	StableAnchorFraction    float64 `yaml:"stable_anchor_fraction"`
	AnchorPool              string  `yaml:"anchor_pool"`
	EcoBoostMultiplier      float64 `yaml:"eco_boost"`
	RiskTolerance           float64 `yaml:"risk_tolerance"`
	MinStableAllocation     float64 `yaml:"min_stable_allocation"`
	MaxSinglePoolAllocation float64 `yaml:"max_single_pool_allocation"`
	EmergencyCap            float64 `yaml:"emergency_cap"`
}

// SimulationConfig controla el Monte Carlo.
type SimulationConfig struct {
	Trials            int     `yaml:"trials"`
	Days              int     `yaml:"days"`
	Workers           int     `yaml:"workers"`
	Seed              uint64  `yaml:"seed"`
	VolatilityStep    float64 `yaml:"volatility_step"`
	MarketChangeStd   float64 `yaml:"market_change_std"`
	OptimizeExecution bool    `yaml:"optimize_execution"`
	Turnover          float64 `yaml:"turnover"`
}

// EngineConfig controla el batch de books.
type EngineConfig struct {
	BatchWorkers int `yaml:"batch_workers"`
}

// MarketConfig indica de dónde salen los datos de mercado.
type MarketConfig struct {
	Fixture     string   `yaml:"fixture"`      // YAML con book, pools y régimen
	CLOBBase    string   `yaml:"clob_base"`    // vacío = solo fixture
	TokenID     string   `yaml:"token_id"`     // book principal live
	BatchTokens []string `yaml:"batch_tokens"` // books extra live para -mode batch
	TimeoutSec  int      `yaml:"timeout_seconds"`
	RatePerSec  float64  `yaml:"rate_per_sec"`  // 0 = 30/s
	MaxRetries  int      `yaml:"max_retries"`   // 0 = 3
	RetryWaitMs int      `yaml:"retry_wait_ms"` // primer backoff; 0 = 500ms
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta un YAML ya leído y aplica env overrides y defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	envFloat("ALLOC_HIGH_VOL_THRESHOLD", &cfg.Allocator.HighVolThreshold)
	envFloat("ALLOC_STABLE_ANCHOR_FRACTION", &cfg.Allocator.StableAnchorFraction)
	envFloat("ALLOC_ECO_BOOST", &cfg.Allocator.EcoBoostMultiplier)
	if v := os.Getenv("CLOB_BASE"); v != "" {
		cfg.Market.CLOBBase = v
	}
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring invalid env override", "key", key, "value", v)
		return
	}
	*dst = f
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Las constantes del core se dejan a cero: sus withDefaults las completan.
func setDefaults(cfg *Config) {
	if cfg.Market.TimeoutSec <= 0 {
		cfg.Market.TimeoutSec = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "allocengine.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// OptimizerConfig devuelve la config del core con los overrides aplicados.
func (c *Config) OptimizerConfig() optimizer.Config {
	o := c.Optimizer
	cfg := optimizer.DefaultConfig()
	setInt(&cfg.MaxIterations, o.MaxIterations)
	setFloat(&cfg.InitialTemperature, o.InitialTemperature)
	setFloat(&cfg.CoolingRate, o.CoolingRate)
	setFloat(&cfg.MinTemperature, o.MinTemperature)
	setFloat(&cfg.BaseSpreadBP, o.BaseSpreadBP)
	setInt(&cfg.MinOrders, o.MinOrders)
	setInt(&cfg.MaxOrders, o.MaxOrders)
	setFloat(&cfg.MinOrderAmount, o.MinOrderAmount)
	cfg.Deadline = time.Duration(o.DeadlineMs) * time.Millisecond
	cfg.Seed = o.Seed
	return cfg
}

// AllocatorConfig devuelve la config del allocator con los overrides de gobernanza.
func (c *Config) AllocatorConfig() allocator.Config {
	a := c.Allocator
	cfg := allocator.DefaultConfig()
	setFloat(&cfg.HighVolThreshold, a.HighVolThreshold)
	setFloat(&cfg.StableAnchorFraction, a.StableAnchorFraction)
	setFloat(&cfg.EcoBoostMultiplier, a.EcoBoostMultiplier)
	setFloat(&cfg.RiskTolerance, a.RiskTolerance)
	setFloat(&cfg.MinStableAllocation, a.MinStableAllocation)
	setFloat(&cfg.MaxSinglePoolAllocation, a.MaxSinglePoolAllocation)
	setFloat(&cfg.EmergencyCap, a.EmergencyCap)
	cfg.AnchorPool = a.AnchorPool
	return cfg
}

// SimulationConfig devuelve la config del Monte Carlo.
func (c *Config) SimulationConfig() simulation.Config {
	s := c.Simulation
	cfg := simulation.DefaultConfig()
	setInt(&cfg.Trials, s.Trials)
	setInt(&cfg.Days, s.Days)
	setFloat(&cfg.VolatilityStep, s.VolatilityStep)
	setFloat(&cfg.MarketChangeStd, s.MarketChangeStd)
	setFloat(&cfg.Turnover, s.Turnover)
	cfg.Workers = s.Workers
	cfg.Seed = s.Seed
	cfg.OptimizeExecution = s.OptimizeExecution
	return cfg
}

// EngineConfig devuelve la config del servicio de aplicación.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{BatchWorkers: c.Engine.BatchWorkers, Seed: c.Optimizer.Seed}
}

// MarketTimeout devuelve el timeout HTTP del CLOB como time.Duration.
func (c *Config) MarketTimeout() time.Duration {
	return time.Duration(c.Market.TimeoutSec) * time.Second
}

// CLOBOptions devuelve timeout, rate y retries del cliente CLOB.
func (c *Config) CLOBOptions() clob.Options {
	m := c.Market
	return clob.Options{
		Timeout:    c.MarketTimeout(),
		RatePerSec: m.RatePerSec,
		MaxRetries: m.MaxRetries,
		RetryWait:  time.Duration(m.RetryWaitMs) * time.Millisecond,
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
