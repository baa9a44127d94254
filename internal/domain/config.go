package domain

// Config holds the complete Heron configuration.
type Config struct {
	Analysis AnalysisConfig `json:"analysis"`
	Server   ServerConfig   `json:"server"`

	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	Logging LoggingConfig `json:"logging"`
}

// AnalysisConfig holds detector thresholds. Zero values are replaced by
// the documented defaults via Normalized, so a partially populated config
// behaves sensibly.
type AnalysisConfig struct {
	// Minimum license count at one address to flag density.
	AddressThreshold int `json:"addressThreshold"`

	// Minimum similarity ratio to cluster or match names.
	NameSimilarityThreshold float64 `json:"nameSimilarityThreshold"`

	// Temporal clustering window half-width and minimum count.
	TemporalWindowDays int `json:"temporalWindowDays"`
	TemporalThreshold  int `json:"temporalThreshold"`

	// Minimum license count in a ZIP to flag concentration.
	ZipThreshold int `json:"zipThreshold"`

	// Tax linkage cuts.
	HighValueTaxDue   float64 `json:"highValueTaxDue"`
	LongTermYears     float64 `json:"longTermYears"`
	TaxMatchThreshold float64 `json:"taxMatchThreshold"`

	// Worker count for the pairwise similarity joins. 0 means sequential.
	MaxWorkers int `json:"maxWorkers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// DefaultAnalysisConfig returns the documented detector defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		AddressThreshold:        3,
		NameSimilarityThreshold: 0.85,
		TemporalWindowDays:      7,
		TemporalThreshold:       5,
		ZipThreshold:            10,
		HighValueTaxDue:         5000,
		LongTermYears:           3,
		TaxMatchThreshold:       0.80,
		MaxWorkers:              4,
	}
}

// Normalized returns a copy with zero thresholds replaced by defaults.
func (c AnalysisConfig) Normalized() AnalysisConfig {
	d := DefaultAnalysisConfig()
	if c.AddressThreshold <= 0 {
		c.AddressThreshold = d.AddressThreshold
	}
	if c.NameSimilarityThreshold <= 0 {
		c.NameSimilarityThreshold = d.NameSimilarityThreshold
	}
	if c.TemporalWindowDays <= 0 {
		c.TemporalWindowDays = d.TemporalWindowDays
	}
	if c.TemporalThreshold <= 0 {
		c.TemporalThreshold = d.TemporalThreshold
	}
	if c.ZipThreshold <= 0 {
		c.ZipThreshold = d.ZipThreshold
	}
	if c.HighValueTaxDue <= 0 {
		c.HighValueTaxDue = d.HighValueTaxDue
	}
	if c.LongTermYears <= 0 {
		c.LongTermYears = d.LongTermYears
	}
	if c.TaxMatchThreshold <= 0 {
		c.TaxMatchThreshold = d.TaxMatchThreshold
	}
	return c
}

// DefaultConfig returns a standalone configuration: SQLite persistence,
// in-memory cache, channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Analysis: DefaultAnalysisConfig(),
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./heron.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     300,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DistributedConfig returns a configuration for shared deployments:
// PostgreSQL persistence, Redis-backed two-phase cache, NATS event bus.
func DistributedConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "heron",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   500,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}
