package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/valuebot/internal/application/engine"
	"github.com/alejandrodnm/valuebot/internal/domain"
	"github.com/alejandrodnm/valuebot/internal/domain/model"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine  EngineConfig   `yaml:"engine"`
	Leagues []LeagueConfig `yaml:"leagues"`
	Model   ModelConfig    `yaml:"model"`
	API     APIConfig      `yaml:"api"`
	Signals SignalsConfig  `yaml:"signals"`
	Storage StorageConfig  `yaml:"storage"`
	Notify  NotifyConfig   `yaml:"notify"`
	Log     LogConfig      `yaml:"log"`
}

// EngineConfig controla los filtros y la concurrencia de cada pasada.
type EngineConfig struct {
	MinEdge         float64 `yaml:"min_edge"` // estricto: edge > min_edge
	OddMin          float64 `yaml:"odd_min"`
	OddMax          float64 `yaml:"odd_max"`
	DoubleChanceMin float64 `yaml:"double_chance_min"`
	DoubleChanceMax float64 `yaml:"double_chance_max"`
	MaxResults      int     `yaml:"max_results"`
	MinSources      int     `yaml:"min_sources"`
	LeagueWorkers   int     `yaml:"league_workers"`
	EventWorkers    int     `yaml:"event_workers"`
	PassTimeoutSecs int     `yaml:"pass_timeout_seconds"`
	ConsensusMarkup float64 `yaml:"consensus_markup"` // 1.0 = sin ajuste
	IntervalSeconds int     `yaml:"interval_seconds"`
}

// LeagueConfig es una competición a recorrer. ID es la clave del proveedor.
type LeagueConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ModelConfig sobreescribe constantes del modelo. Los campos a 0 usan el default.
type ModelConfig struct {
	ScoringWeight      float64 `yaml:"scoring_weight"`
	RatingWeight       float64 `yaml:"rating_weight"`
	PriorWeight        float64 `yaml:"prior_weight"`
	HomePrior          float64 `yaml:"home_prior"`
	DrawShare          float64 `yaml:"draw_share"`
	DefaultScoringRate float64 `yaml:"default_scoring_rate"`
	TotalsCap          float64 `yaml:"totals_cap"`
	BTTSCap            float64 `yaml:"btts_cap"`
}

// APIConfig contiene la configuración del proveedor de cuotas.
type APIConfig struct {
	OddsBase       string  `yaml:"odds_base"`
	OddsKey        string  `yaml:"-"` // solo desde ODDS_API_KEY
	Regions        string  `yaml:"regions"`
	Markets        string  `yaml:"markets"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	SnapshotPath   string  `yaml:"snapshot_path"` // si está, se usa el snapshot JSON en vez de la API
}

// SignalsConfig controla de dónde salen las señales de equipo.
type SignalsConfig struct {
	TablePath       string `yaml:"table_path"`
	RedisAddr       string `yaml:"redis_addr"` // vacío = sin caché
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN           string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
	RetentionDays int    `yaml:"retention_days"`
}

// NotifyConfig controla los sinks del ranking.
type NotifyConfig struct {
	Console        bool   `yaml:"console"`
	TelegramToken  string `yaml:"-"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	LabelWidth     int    `yaml:"label_width"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta un YAML ya leído, aplica overrides de entorno y defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Notify: NotifyConfig{Console: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Interval devuelve el intervalo entre pasadas como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Engine.IntervalSeconds) * time.Second
}

// EngineConfig convierte la sección engine + leagues a la config del engine.
// No valida: eso lo hace engine.Config.Validate antes de cualquier fetch.
func (c *Config) EngineConfig() engine.Config {
	leagues := make([]domain.League, 0, len(c.Leagues))
	for _, l := range c.Leagues {
		leagues = append(leagues, domain.League{ID: l.ID, Name: l.Name})
	}
	return engine.Config{
		MinEdge:         c.Engine.MinEdge,
		Standard:        domain.PriceRange{Min: c.Engine.OddMin, Max: c.Engine.OddMax},
		DoubleChance:    domain.PriceRange{Min: c.Engine.DoubleChanceMin, Max: c.Engine.DoubleChanceMax},
		MaxResults:      c.Engine.MaxResults,
		MinSources:      c.Engine.MinSources,
		LeagueWorkers:   c.Engine.LeagueWorkers,
		EventWorkers:    c.Engine.EventWorkers,
		PassTimeout:     time.Duration(c.Engine.PassTimeoutSecs) * time.Second,
		ConsensusMarkup: c.Engine.ConsensusMarkup,
		Interval:        c.Interval(),
		Leagues:         leagues,
	}
}

// ModelConfig convierte la sección model; lo no configurado queda en el default.
func (c *Config) ModelConfig() model.Config {
	mc := model.DefaultConfig()
	set := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	set(&mc.ScoringWeight, c.Model.ScoringWeight)
	set(&mc.RatingWeight, c.Model.RatingWeight)
	set(&mc.PriorWeight, c.Model.PriorWeight)
	set(&mc.HomePrior, c.Model.HomePrior)
	set(&mc.DrawShare, c.Model.DrawShare)
	set(&mc.DefaultScoringRate, c.Model.DefaultScoringRate)
	set(&mc.TotalsCap, c.Model.TotalsCap)
	set(&mc.BTTSCap, c.Model.BTTSCap)
	return mc
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ODDS_API_KEY"); v != "" {
		cfg.API.OddsKey = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		var id int64
		if _, err := fmt.Sscan(v, &id); err != nil {
			return fmt.Errorf("config.applyEnvOverrides: TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.Notify.TelegramChatID = id
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Signals.RedisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// min_edge no tiene default: 0 es un umbral válido.
func setDefaults(cfg *Config) {
	e := &cfg.Engine
	if e.OddMin == 0 && e.OddMax == 0 {
		e.OddMin, e.OddMax = 1.30, 3.50
	}
	if e.DoubleChanceMin == 0 && e.DoubleChanceMax == 0 {
		e.DoubleChanceMin, e.DoubleChanceMax = 1.10, 2.00
	}
	if e.MaxResults == 0 {
		e.MaxResults = 12
	}
	if e.MinSources == 0 {
		e.MinSources = 5
	}
	if e.LeagueWorkers <= 0 {
		e.LeagueWorkers = 4
	}
	if e.EventWorkers <= 0 {
		e.EventWorkers = 4
	}
	if e.PassTimeoutSecs <= 0 {
		e.PassTimeoutSecs = 60
	}
	if e.ConsensusMarkup <= 0 {
		e.ConsensusMarkup = 1.0
	}
	if e.IntervalSeconds <= 0 {
		e.IntervalSeconds = 600
	}
	if cfg.API.OddsBase == "" {
		cfg.API.OddsBase = "https://api.the-odds-api.com/v4"
	}
	if cfg.API.Regions == "" {
		cfg.API.Regions = "eu,uk"
	}
	if cfg.API.Markets == "" {
		cfg.API.Markets = "h2h,totals,spreads"
	}
	if cfg.API.RatePerSecond <= 0 {
		cfg.API.RatePerSecond = 2
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 15
	}
	if cfg.Signals.CacheTTLMinutes <= 0 {
		cfg.Signals.CacheTTLMinutes = 60
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "valuebot.db"
	}
	if cfg.Storage.RetentionDays <= 0 {
		cfg.Storage.RetentionDays = 30
	}
	if cfg.Notify.LabelWidth <= 0 {
		cfg.Notify.LabelWidth = 40
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
