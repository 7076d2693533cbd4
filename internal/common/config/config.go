// internal/common/config/config.go
package config

import (
	"fmt"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Directory    DirectoryConfig         `mapstructure:"directory"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Scoring      ScoringConfig           `mapstructure:"scoring"`
	Broadcast    BroadcastConfig         `mapstructure:"broadcast"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	HTTP         HTTPConfig              `mapstructure:"http"`
	Tracing      TracingConfig           `mapstructure:"tracing"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	URL          string   `mapstructure:"url"`
	PatientIndex string   `mapstructure:"patient_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Directory backends
const (
	DirectoryBackendPostgres      = "postgres"
	DirectoryBackendElasticsearch = "elasticsearch"
)

// DirectoryConfig selects where eligible donors are read from.
type DirectoryConfig struct {
	Backend      string `mapstructure:"backend"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // milliseconds
}

// ScoringConfig overrides the stock severity table. A nil field keeps the default; a set field
// wins even when it is zero. base_severity entries are merged key by key.
type ScoringConfig struct {
	BaseSeverity      map[string]int `mapstructure:"base_severity"`
	BonusPerUnit      *int           `mapstructure:"bonus_per_unit"`
	MaxUnitBonus      *int           `mapstructure:"max_unit_bonus"`
	CriticalThreshold *int           `mapstructure:"critical_threshold"`
	HardCriticalTypes *[]string      `mapstructure:"hard_critical_types"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// BroadcastConfig tunes the alert fan-out.
type BroadcastConfig struct {
	MaxConcurrency   int    `mapstructure:"max_concurrency"`
	AttemptTimeout   int    `mapstructure:"attempt_timeout"` // milliseconds
	TemplateRegistry string `mapstructure:"template_registry"`
}

// IntegrationConfig holds settings for external services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			SenderID string `mapstructure:"sender_id"`
			SMSType  string `mapstructure:"sms_type"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type TracingConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
