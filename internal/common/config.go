package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/joseph-ayodele/cardscan/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Extract  ExtractConfig  `toml:"extract"`
	Vision   VisionConfig   `toml:"vision"`
	Ingest   IngestConfig   `toml:"ingest"`
	Export   ExportConfig   `toml:"export"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `toml:"driver"` // "postgres" or "sqlite"
	DSN              string        `toml:"dsn"`
	MaxConns         int32         `toml:"max_conns"`
	MinConns         int32         `toml:"min_conns"`
	MaxConnLifetime  time.Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `toml:"max_conn_idle_time"`
	DialTimeout      time.Duration `toml:"dial_timeout"`
	StatementTimeout time.Duration `toml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `toml:"http_addr"`
	GRPCAddr        string        `toml:"grpc_addr"`
	MaxUploadBytes  int64         `toml:"max_upload_bytes"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// ExtractConfig selects and tunes the field extractor
type ExtractConfig struct {
	Strategy      string `toml:"strategy"` // "heuristic" or "vision"
	TesseractPath string `toml:"tesseract_path"`
	TessdataDir   string `toml:"tessdata_dir"`
	Language      string `toml:"language"`
	ScratchDir    string `toml:"scratch_dir"`
}

// VisionConfig holds remote vision model configuration
type VisionConfig struct {
	Provider    string        `toml:"provider"` // "gemini" or "openai"
	Model       string        `toml:"model"`
	APIKey      string        `toml:"api_key"`
	BaseURL     string        `toml:"base_url"`
	Temperature float32       `toml:"temperature"`
	Timeout     time.Duration `toml:"timeout"`
}

// IngestConfig tunes the batch pipeline
type IngestConfig struct {
	Workers        int           `toml:"workers"`
	ItemTimeout    time.Duration `toml:"item_timeout"`
	SkipDuplicates bool          `toml:"skip_duplicates"`
}

// ExportConfig tunes report generation
type ExportConfig struct {
	TopCompanies int `toml:"top_companies"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Format string `toml:"format"` // "text" or "json"
	Level  string `toml:"level"`
}

// LoadConfig loads configuration from environment variables. When CONFIG_FILE
// points at a TOML file, its values fill anything the environment left unset.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":9090"),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 64<<20)),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Extract: ExtractConfig{
			Strategy:      getEnv("EXTRACTOR", string(constants.ExtractorVision)),
			TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			Language:      getEnv("TESSERACT_LANG", "eng"),
			ScratchDir:    getEnv("SCRATCH_DIR", os.TempDir()),
		},
		Vision: VisionConfig{
			Provider:    getEnv("VISION_PROVIDER", string(constants.VisionGemini)),
			Model:       getEnv("VISION_MODEL", ""),
			APIKey:      getEnv("VISION_API_KEY", ""),
			BaseURL:     getEnv("VISION_BASE_URL", ""),
			Temperature: getEnvAsFloat32("VISION_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("VISION_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			Workers:        getEnvAsInt("INGEST_WORKERS", 1),
			ItemTimeout:    getEnvAsDuration("INGEST_ITEM_TIMEOUT", 2*time.Minute),
			SkipDuplicates: getEnvAsBool("INGEST_SKIP_DUPLICATES", false),
		},
		Export: ExportConfig{
			TopCompanies: getEnvAsInt("EXPORT_TOP_COMPANIES", 20),
		},
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "text"),
			Level:  getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Vision.APIKey == "" {
		// provider specific fallbacks
		switch constants.VisionProvider(cfg.Vision.Provider) {
		case constants.VisionOpenAI:
			cfg.Vision.APIKey = getEnv("OPENAI_API_KEY", "")
		default:
			cfg.Vision.APIKey = getEnv("GEMINI_API_KEY", "")
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// overlayFile decodes a TOML file and copies values into fields that the
// environment did not set.
func (c *Config) overlayFile(path string) error {
	var file Config
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("config file %s not found", path), ErrInvalidInput)
		}
		return NewAppError("CONFIG_ERROR", "decode config file", err)
	}

	fill := func(env string, dst *string, v string) {
		if os.Getenv(env) == "" && v != "" {
			*dst = v
		}
	}
	fill("DB_DRIVER", &c.Database.Driver, file.Database.Driver)
	fill("DB_URL", &c.Database.DSN, file.Database.DSN)
	fill("HTTP_ADDR", &c.Server.HTTPAddr, file.Server.HTTPAddr)
	fill("GRPC_ADDR", &c.Server.GRPCAddr, file.Server.GRPCAddr)
	fill("EXTRACTOR", &c.Extract.Strategy, file.Extract.Strategy)
	fill("TESSERACT_PATH", &c.Extract.TesseractPath, file.Extract.TesseractPath)
	fill("TESSDATA_PREFIX", &c.Extract.TessdataDir, file.Extract.TessdataDir)
	fill("TESSERACT_LANG", &c.Extract.Language, file.Extract.Language)
	fill("SCRATCH_DIR", &c.Extract.ScratchDir, file.Extract.ScratchDir)
	fill("VISION_PROVIDER", &c.Vision.Provider, file.Vision.Provider)
	fill("VISION_MODEL", &c.Vision.Model, file.Vision.Model)
	fill("VISION_API_KEY", &c.Vision.APIKey, file.Vision.APIKey)
	fill("VISION_BASE_URL", &c.Vision.BaseURL, file.Vision.BaseURL)
	fill("LOG_FORMAT", &c.Log.Format, file.Log.Format)
	fill("LOG_LEVEL", &c.Log.Level, file.Log.Level)

	if os.Getenv("INGEST_WORKERS") == "" && file.Ingest.Workers > 0 {
		c.Ingest.Workers = file.Ingest.Workers
	}
	if os.Getenv("INGEST_SKIP_DUPLICATES") == "" && file.Ingest.SkipDuplicates {
		c.Ingest.SkipDuplicates = true
	}
	if os.Getenv("EXPORT_TOP_COMPANIES") == "" && file.Export.TopCompanies > 0 {
		c.Export.TopCompanies = file.Export.TopCompanies
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	case "sqlite":
		if c.Database.DSN == "" {
			c.Database.DSN = ":memory:"
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}

	switch constants.ExtractorStrategy(strings.ToLower(c.Extract.Strategy)) {
	case constants.ExtractorHeuristic:
	case constants.ExtractorVision:
		switch constants.VisionProvider(c.Vision.Provider) {
		case constants.VisionGemini, constants.VisionOpenAI:
		default:
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported VISION_PROVIDER %q", c.Vision.Provider), ErrInvalidInput)
		}
		if c.Vision.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "VISION_API_KEY is required for the vision extractor", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported EXTRACTOR %q", c.Extract.Strategy), ErrInvalidInput)
	}

	if c.Ingest.Workers < 1 {
		c.Ingest.Workers = 1
	}
	if c.Export.TopCompanies < 1 {
		c.Export.TopCompanies = 20
	}
	return nil
}
