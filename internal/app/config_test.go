package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
)

// isolate points the loader at an empty working directory so a checked-in
// config/config.yaml never leaks into a test.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(configPathEnv, "")
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Segments.KMin != 2 || cfg.Segments.KMax != 10 || cfg.Segments.K != 0 {
		t.Fatalf("segments: got=%+v", cfg.Segments)
	}
	if cfg.Genres.MinRatings != 10 || cfg.Genres.TopN != 5 {
		t.Fatalf("genres: got=%+v", cfg.Genres)
	}
	if cfg.StoreConfig().Enabled() || cfg.UploaderConfig().Enabled() || cfg.Cache.RedisAddr != "" {
		t.Fatalf("sinks must be disabled by default: %+v", cfg)
	}
	opts := cfg.PipelineOptions()
	if opts.Sweep.Concurrency != 4 || !opts.ChartEnabled {
		t.Fatalf("pipeline options: got=%+v", opts)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
data_dir: /srv/ml-100k
segments:
  k_max: 6
  k: 4
genres:
  top_n: 3
cache:
  redis_addr: redis:6379
  ttl_seconds: 3600
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("MLI_SEGMENTS_K", "5")
	t.Setenv("MLI_STORE_DRIVER", "sqlite")
	t.Setenv("MLI_STORE_DSN", "results.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DataDir != "/srv/ml-100k" {
		t.Fatalf("data_dir: want=%q got=%q", "/srv/ml-100k", cfg.DataDir)
	}
	if cfg.Segments.KMin != 2 || cfg.Segments.KMax != 6 {
		t.Fatalf("k range: want=2..6 got=%d..%d", cfg.Segments.KMin, cfg.Segments.KMax)
	}
	if cfg.Segments.K != 5 {
		t.Fatalf("env should override file k: want=5 got=%d", cfg.Segments.K)
	}
	if cfg.Genres.TopN != 3 || cfg.Genres.MinRatings != 10 {
		t.Fatalf("genres: got=%+v", cfg.Genres)
	}
	if got := cfg.PublisherConfig().TTL; got != time.Hour {
		t.Fatalf("ttl: want=%v got=%v", time.Hour, got)
	}
	if sc := cfg.StoreConfig(); sc.Driver != "sqlite" || sc.DSN != "results.db" {
		t.Fatalf("store: got=%+v", sc)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"k of one", map[string]string{"MLI_SEGMENTS_K": "1"}},
		{"k not a number", map[string]string{"MLI_SEGMENTS_K": "three"}},
		{"zero min ratings", map[string]string{"MLI_GENRES_MIN_RATINGS": "0"}},
		{"zero concurrency", map[string]string{"MLI_SWEEP_CONCURRENCY": "0"}},
		{"unknown driver", map[string]string{"MLI_STORE_DRIVER": "mysql", "MLI_STORE_DSN": "x"}},
		{"driver without dsn", map[string]string{"MLI_STORE_DRIVER": "postgres"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Fatalf("LoadConfig: want ErrInvalidArgument got=%v", err)
			}
		})
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("segments: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(configPathEnv, path)
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig: expected parse error")
	}
}
