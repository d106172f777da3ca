package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Census        CensusConfig        `yaml:"census" mapstructure:"census"`
	Data          DataConfig          `yaml:"data" mapstructure:"data"`
	Affordability AffordabilityConfig `yaml:"affordability" mapstructure:"affordability"`
	RunLog        RunLogConfig        `yaml:"runlog" mapstructure:"runlog"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures the Census Bureau API client.
type CensusConfig struct {
	APIKey        string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	ACSYear       int     `yaml:"acs_year" mapstructure:"acs_year"`
	DecennialYear int     `yaml:"decennial_year" mapstructure:"decennial_year"`
	ZCTA          string  `yaml:"zcta" mapstructure:"zcta"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	Catalog       string  `yaml:"catalog" mapstructure:"catalog"`
}

// DataConfig configures on-disk storage locations.
type DataConfig struct {
	Root          string   `yaml:"root" mapstructure:"root"`
	LegacyRawDirs []string `yaml:"legacy_raw_dirs" mapstructure:"legacy_raw_dirs"`
}

// RawDir is the canonical root for raw artifacts of every source category.
func (d DataConfig) RawDir() string { return filepath.Join(d.Root, "raw") }

// RawCensusDir is where verbatim Census API responses land.
func (d DataConfig) RawCensusDir() string { return filepath.Join(d.RawDir(), "census") }

// RawLaborDir is where saved MD Labor releases land.
func (d DataConfig) RawLaborDir() string { return filepath.Join(d.RawDir(), "labor") }

// MetricsDir is where derived metric documents land.
func (d DataConfig) MetricsDir() string { return filepath.Join(d.Root, "metrics") }

// ProcessedDir is where parsed third-party releases land.
func (d DataConfig) ProcessedDir() string { return filepath.Join(d.Root, "processed") }

// BaselineDocPath is the baseline metrics document.
func (d DataConfig) BaselineDocPath() string {
	return filepath.Join(d.MetricsDir(), "baseline.json")
}

// IncomeDocPath is the income/affordability document.
func (d DataConfig) IncomeDocPath() string {
	return filepath.Join(d.MetricsDir(), "income_employment.json")
}

// AuditReportPath is the latest provenance audit report.
func (d DataConfig) AuditReportPath() string {
	return filepath.Join(d.Root, "provenance_audit_report.md")
}

// AffordabilityConfig holds the documented affordability heuristics. The
// defaults are the published methodology; change them only with a matching
// change to the method descriptions in the output documents.
type AffordabilityConfig struct {
	IncomeShare      float64 `yaml:"income_share" mapstructure:"income_share"`
	OwnershipRate    float64 `yaml:"ownership_rate" mapstructure:"ownership_rate"`
	TopBracketIncome float64 `yaml:"top_bracket_income" mapstructure:"top_bracket_income"`
}

// RunLogConfig configures the collection run history backend.
type RunLogConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HANOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Census Bureau documents CENSUS_API_KEY; honor it alongside the
	// prefixed form.
	if err := v.BindEnv("census.api_key", "HANOVER_CENSUS_API_KEY", "CENSUS_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.acs_year", 2023)
	v.SetDefault("census.decennial_year", 2020)
	v.SetDefault("census.zcta", "21076")
	v.SetDefault("census.timeout_secs", 30)
	v.SetDefault("census.rate_limit", 2.0)
	v.SetDefault("census.user_agent", "hanover-cli/1.0")
	v.SetDefault("data.root", "data")
	v.SetDefault("data.legacy_raw_dirs", []string{filepath.Join("analysis", "data", "raw")})
	v.SetDefault("affordability.income_share", 0.30)
	v.SetDefault("affordability.ownership_rate", 0.006)
	v.SetDefault("affordability.top_bracket_income", 300000)
	v.SetDefault("runlog.driver", "sqlite")
	v.SetDefault("runlog.path", filepath.Join("data", "runlog.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would produce meaningless output.
func (c *Config) Validate() error {
	if c.Census.ZCTA == "" {
		return eris.New("config: census.zcta must be set")
	}
	if c.Census.TimeoutSecs <= 0 {
		return eris.New("config: census.timeout_secs must be positive")
	}
	if c.Affordability.IncomeShare <= 0 || c.Affordability.IncomeShare > 1 {
		return eris.Errorf("config: affordability.income_share %v outside (0, 1]", c.Affordability.IncomeShare)
	}
	if c.Affordability.OwnershipRate <= 0 {
		return eris.New("config: affordability.ownership_rate must be positive")
	}
	if c.Affordability.TopBracketIncome <= 0 {
		return eris.New("config: affordability.top_bracket_income must be positive")
	}
	switch c.RunLog.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown runlog driver %q", c.RunLog.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
