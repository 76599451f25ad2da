package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/movielens-insights/internal/aggregate"
	"github.com/yungbote/movielens-insights/internal/clients/redis"
	"github.com/yungbote/movielens-insights/internal/clustering"
	"github.com/yungbote/movielens-insights/internal/db"
	"github.com/yungbote/movielens-insights/internal/jobs/pipeline"
	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/platform/envutil"
	"github.com/yungbote/movielens-insights/internal/platform/gcp"
	"github.com/yungbote/movielens-insights/internal/report"
)

const configPathEnv = "MLI_CONFIG_PATH"

type SegmentsConfig struct {
	KMin int `yaml:"k_min"`
	KMax int `yaml:"k_max"`
	// K is the chosen cluster count; 0 runs the sweep only.
	K                int     `yaml:"k"`
	Seed             int64   `yaml:"seed"`
	MaxIterations    int     `yaml:"max_iterations"`
	Tolerance        float64 `yaml:"tolerance"`
	SweepConcurrency int     `yaml:"sweep_concurrency"`
}

type GenresConfig struct {
	MinRatings int `yaml:"min_ratings"`
	TopN       int `yaml:"top_n"`
}

type ChartConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FontPath string `yaml:"font_path"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type UploadConfig struct {
	GCSBucket    string `yaml:"gcs_bucket"`
	Prefix       string `yaml:"prefix"`
	EmulatorHost string `yaml:"emulator_host"`
}

type Config struct {
	Env       string `yaml:"env"`
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`

	Segments SegmentsConfig `yaml:"segments"`
	Genres   GenresConfig   `yaml:"genres"`
	Chart    ChartConfig    `yaml:"chart"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Upload   UploadConfig   `yaml:"upload"`
}

func defaultConfig() *Config {
	return &Config{
		Env:       "development",
		DataDir:   filepath.Join("data", "ml-100k"),
		OutputDir: "out",
		Segments: SegmentsConfig{
			KMin:             2,
			KMax:             10,
			Seed:             1,
			MaxIterations:    clustering.DefaultMaxIterations,
			Tolerance:        clustering.DefaultTolerance,
			SweepConcurrency: clustering.DefaultSweepConcurrency,
		},
		Genres: GenresConfig{
			MinRatings: aggregate.DefaultMinRatings,
			TopN:       aggregate.DefaultTopN,
		},
		Chart: ChartConfig{Enabled: true},
		Cache: CacheConfig{KeyPrefix: "mli"},
	}
}

// LoadConfig layers defaults, the optional YAML file and env overrides, then validates.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv(configPathEnv))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// fields absent from the file keep their defaults
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.DataDir = envutil.String("MLI_DATA_DIR", cfg.DataDir)
	cfg.OutputDir = envutil.String("MLI_OUTPUT_DIR", cfg.OutputDir)

	if err := envInt("MLI_SEGMENTS_K", &cfg.Segments.K); err != nil {
		return err
	}
	if err := envInt("MLI_SWEEP_CONCURRENCY", &cfg.Segments.SweepConcurrency); err != nil {
		return err
	}
	if v, ok := envutil.Lookup("MLI_SEGMENTS_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return apperr.Invalid("MLI_SEGMENTS_SEED=%q is not an integer", v)
		}
		cfg.Segments.Seed = seed
	}
	if err := envInt("MLI_GENRES_MIN_RATINGS", &cfg.Genres.MinRatings); err != nil {
		return err
	}
	if err := envInt("MLI_GENRES_TOP_N", &cfg.Genres.TopN); err != nil {
		return err
	}

	cfg.Chart.Enabled = envutil.Bool("MLI_CHART_ENABLED", cfg.Chart.Enabled)
	cfg.Chart.FontPath = envutil.String("MLI_CHART_FONT", cfg.Chart.FontPath)

	cfg.Store.Driver = envutil.String("MLI_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = envutil.String("MLI_STORE_DSN", cfg.Store.DSN)

	cfg.Cache.RedisAddr = envutil.String("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.KeyPrefix = envutil.String("MLI_REDIS_KEY_PREFIX", cfg.Cache.KeyPrefix)

	cfg.Upload.GCSBucket = envutil.String("MLI_GCS_BUCKET", cfg.Upload.GCSBucket)
	cfg.Upload.Prefix = envutil.String("MLI_GCS_PREFIX", cfg.Upload.Prefix)
	cfg.Upload.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.Upload.EmulatorHost)
	return nil
}

func envInt(name string, dst *int) error {
	v, ok := envutil.Lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return apperr.Invalid("%s=%q is not an integer", name, v)
	}
	*dst = n
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return apperr.Invalid("data_dir is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return apperr.Invalid("output_dir is required")
	}
	s := c.Segments
	if s.KMin < 2 {
		return apperr.Invalid("segments.k_min must be >= 2, got %d", s.KMin)
	}
	if s.KMax < s.KMin {
		return apperr.Invalid("segments.k_max %d < k_min %d", s.KMax, s.KMin)
	}
	if s.K != 0 && s.K < 2 {
		return apperr.Invalid("segments.k must be 0 (sweep only) or >= 2, got %d", s.K)
	}
	if s.SweepConcurrency < 1 {
		return apperr.Invalid("segments.sweep_concurrency must be >= 1, got %d", s.SweepConcurrency)
	}
	if s.MaxIterations < 1 {
		return apperr.Invalid("segments.max_iterations must be >= 1, got %d", s.MaxIterations)
	}
	if s.Tolerance <= 0 {
		return apperr.Invalid("segments.tolerance must be > 0, got %v", s.Tolerance)
	}
	if c.Genres.MinRatings < 1 {
		return apperr.Invalid("genres.min_ratings must be >= 1, got %d", c.Genres.MinRatings)
	}
	if c.Genres.TopN < 1 {
		return apperr.Invalid("genres.top_n must be >= 1, got %d", c.Genres.TopN)
	}
	if c.Cache.TTLSeconds < 0 {
		return apperr.Invalid("cache.ttl_seconds must be >= 0, got %d", c.Cache.TTLSeconds)
	}
	return c.StoreConfig().Validate()
}

func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		DataDir:   c.DataDir,
		OutputDir: c.OutputDir,
		Sweep: clustering.SweepOptions{
			KMin:          c.Segments.KMin,
			KMax:          c.Segments.KMax,
			Seed:          c.Segments.Seed,
			MaxIterations: c.Segments.MaxIterations,
			Tolerance:     c.Segments.Tolerance,
			Concurrency:   c.Segments.SweepConcurrency,
		},
		K: c.Segments.K,
		Genres: aggregate.Options{
			MinRatings: c.Genres.MinRatings,
			TopN:       c.Genres.TopN,
		},
		ChartEnabled: c.Chart.Enabled,
		Chart:        report.ChartOptions{FontPath: c.Chart.FontPath},
	}
}

func (c *Config) StoreConfig() db.Config {
	return db.Config{Driver: c.Store.Driver, DSN: c.Store.DSN}
}

func (c *Config) PublisherConfig() redis.Config {
	return redis.Config{
		Addr:      c.Cache.RedisAddr,
		KeyPrefix: c.Cache.KeyPrefix,
		TTL:       time.Duration(c.Cache.TTLSeconds) * time.Second,
	}
}

func (c *Config) UploaderConfig() gcp.UploaderConfig {
	return gcp.UploaderConfig{
		Bucket:       c.Upload.GCSBucket,
		Prefix:       c.Upload.Prefix,
		EmulatorHost: c.Upload.EmulatorHost,
	}
}
