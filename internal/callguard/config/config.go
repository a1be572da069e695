package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

const (
	envPrefix = "CALLGUARD_"

	// FileEnv names the environment variable holding an optional YAML config path.
	FileEnv = envPrefix + "CONFIG_FILE"
)

// AppConfig is the full daemon configuration.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log       LoggingConfig   `koanf:"log"`
	HTTP      HTTPConfig      `koanf:"http"`
	DB        DBConfig        `koanf:"db"`
	Screen    ScreenConfig    `koanf:"screen"`
	Recorder  RecorderConfig  `koanf:"recorder"`
	Retention RetentionConfig `koanf:"retention"`
	Stats     StatsConfig     `koanf:"stats"`

	// SeedDefaults loads the built-in rules on first launch.
	SeedDefaults bool `koanf:"seed_defaults"`
}

type LoggingConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`

	// ScreenTimeout bounds one screening request. Expiry allows the call.
	ScreenTimeout time.Duration `koanf:"screen_timeout" validate:"gt=0"`

	// CORSOrigins lists browser origins allowed to call the admin API.
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,required"`
}

type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ScreenConfig struct {
	// CacheSize is the decision cache capacity; 0 disables the cache.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// BloomFPRate is the prefilter false-positive target; 0 disables the prefilter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"gte=0,lt=1"`
}

type RecorderConfig struct {
	QueueSize int `koanf:"queue_size" validate:"gte=1"`
	Workers   int `koanf:"workers" validate:"gte=1,lte=64"`
}

type RetentionConfig struct {
	Days     int           `koanf:"days" validate:"gte=1,lte=36500"`
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

type StatsConfig struct {
	FirstWeekday string `koanf:"first_weekday" validate:"required,weekday"`
}

// Weekday returns the parsed first day of the reporting week.
func (c StatsConfig) Weekday() time.Weekday {
	d, err := domain.ParseWeekday(c.FirstWeekday)
	if err != nil {
		return time.Monday
	}
	return d
}

// DEFAULT_APP_CONFIG is loaded before any file or environment override.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LoggingConfig{Level: "info"},
	HTTP: HTTPConfig{
		Addr:          "127.0.0.1:8053",
		ScreenTimeout: 200 * time.Millisecond,
		CORSOrigins:   []string{},
	},
	DB: DBConfig{Path: "/var/lib/rr-callguard/callguard.db"},
	Screen: ScreenConfig{
		CacheSize:   4096,
		BloomFPRate: 0.01,
	},
	Recorder: RecorderConfig{
		QueueSize: 256,
		Workers:   1,
	},
	Retention: RetentionConfig{
		Days:     30,
		Interval: time.Hour,
	},
	Stats:        StatsConfig{FirstWeekday: "monday"},
	SeedDefaults: true,
}

// envKeys maps environment variables (without prefix) to koanf paths.
var envKeys = map[string]string{
	"ENV":                  "env",
	"LOG_LEVEL":            "log.level",
	"HTTP_ADDR":            "http.addr",
	"HTTP_SCREEN_TIMEOUT":  "http.screen_timeout",
	"HTTP_CORS_ORIGINS":    "http.cors_origins",
	"DB_PATH":              "db.path",
	"SCREEN_CACHE_SIZE":    "screen.cache_size",
	"SCREEN_BLOOM_FP_RATE": "screen.bloom_fp_rate",
	"RECORDER_QUEUE_SIZE":  "recorder.queue_size",
	"RECORDER_WORKERS":     "recorder.workers",
	"RETENTION_DAYS":       "retention.days",
	"RETENTION_INTERVAL":   "retention.interval",
	"STATS_FIRST_WEEKDAY":  "stats.first_weekday",
	"SEED_DEFAULTS":        "seed_defaults",
}

func validWeekday(fl validator.FieldLevel) bool {
	_, err := domain.ParseWeekday(fl.Field().String())
	return err == nil
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads the YAML file named by CALLGUARD_CONFIG_FILE, if set.
var fileLoader = func(k *koanf.Koanf) error {
	path := strings.TrimSpace(os.Getenv(FileEnv))
	if path == "" {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// listKeys are split on commas and spaces.
var listKeys = map[string]bool{
	"http.cors_origins": true,
}

// envLoader loads CALLGUARD_* variables. Unknown names are ignored.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envKeys[strings.TrimPrefix(key, envPrefix)]
			if !ok {
				return "", nil
			}
			value = strings.TrimSpace(value)
			if listKeys[path] {
				return path, strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
			}
			return path, value
		},
	}), nil)
}

var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("weekday", validWeekday)
}

// Load layers defaults, the optional YAML file and the environment, in that
// order, and validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}
	if err := fileLoader(k); err != nil {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}
