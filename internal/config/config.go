package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	GovUK   GovUKConfig   `yaml:"govuk" mapstructure:"govuk"`
	Wales   WalesConfig   `yaml:"wales" mapstructure:"wales"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	PDF     PDFConfig     `yaml:"pdf" mapstructure:"pdf"`
	OCR     OCRConfig     `yaml:"ocr" mapstructure:"ocr"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the on-disk dataset: checkpoints, downloaded PDFs,
// merged output.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the run-log/manifest database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GovUKConfig configures the GOV.UK search and content API clients.
type GovUKConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	RequestDelay time.Duration `yaml:"request_delay" mapstructure:"request_delay"`
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
}

// WalesConfig configures the Wales tribunal site scraper.
type WalesConfig struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	ListDelay   time.Duration `yaml:"list_delay" mapstructure:"list_delay"`
	DetailDelay time.Duration `yaml:"detail_delay" mapstructure:"detail_delay"`
	FirstYear   int           `yaml:"first_year" mapstructure:"first_year"`
}

// EnrichConfig configures the enrichment worker pool and checkpointing.
type EnrichConfig struct {
	Concurrency        int  `yaml:"concurrency" mapstructure:"concurrency"`
	CheckpointInterval int  `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
	MaxPasses          int  `yaml:"max_passes" mapstructure:"max_passes"`
	Force              bool `yaml:"force" mapstructure:"force"`
}

// PDFConfig configures the attachment fallback phase.
type PDFConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestDelay time.Duration `yaml:"request_delay" mapstructure:"request_delay"`
	SaveEvery    int           `yaml:"save_every" mapstructure:"save_every"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "native" or "pdftotext"
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MinTextChars  int    `yaml:"min_text_chars" mapstructure:"min_text_chars"`
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
	v.SetEnvPrefix("TRIBUNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/tribunal.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("govuk.base_url", "https://www.gov.uk")
	v.SetDefault("govuk.user_agent", "GrantleyGardens-TribunalResearch/1.0 (legal research)")
	v.SetDefault("govuk.timeout", "30s")
	v.SetDefault("govuk.max_retries", 3)
	v.SetDefault("govuk.retry_delay", "2s")
	v.SetDefault("govuk.request_delay", "150ms")
	v.SetDefault("govuk.batch_size", 500)
	v.SetDefault("wales.base_url", "https://residentialpropertytribunal.gov.wales")
	v.SetDefault("wales.user_agent", "GrantleyGardens-TribunalResearch/1.0 (legal research)")
	v.SetDefault("wales.timeout", "30s")
	v.SetDefault("wales.max_retries", 3)
	v.SetDefault("wales.retry_delay", "2s")
	v.SetDefault("wales.list_delay", "1s")
	v.SetDefault("wales.detail_delay", "500ms")
	v.SetDefault("wales.first_year", 2012)
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.checkpoint_interval", 100)
	v.SetDefault("enrich.max_passes", 2)
	v.SetDefault("pdf.timeout", "60s")
	v.SetDefault("pdf.request_delay", "250ms")
	v.SetDefault("pdf.save_every", 25)
	v.SetDefault("ocr.provider", "native")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.min_text_chars", 100)

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

	return &cfg, nil
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
