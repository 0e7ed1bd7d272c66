package config

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/baderkha/list-migrate/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/list-migrate/pkg/migrate/config/targetcfg"
)

func validConfig() Config[sourcecfg.SQLite, targetcfg.S3List] {
	return Config[sourcecfg.SQLite, targetcfg.S3List]{
		Settings: Settings{
			BatchSize:  100,
			RetryCount: 2,
			LogLevel:   "INFO",
		},
		SourceConfig: sourcecfg.SQLite{FilePath: "test_db.sqlite"},
		Target:       targetcfg.S3List{Bucket: "migration-bucket"},
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config[sourcecfg.SQLite, targetcfg.S3List])
		wantMsg string
	}{
		{"zero batch size", func(c *Config[sourcecfg.SQLite, targetcfg.S3List]) { c.Settings.BatchSize = 0 }, "batch_size"},
		{"negative retry count", func(c *Config[sourcecfg.SQLite, targetcfg.S3List]) { c.Settings.RetryCount = -1 }, "retry_count"},
		{"missing source file", func(c *Config[sourcecfg.SQLite, targetcfg.S3List]) { c.SourceConfig.FilePath = "" }, "file_path"},
		{"missing bucket", func(c *Config[sourcecfg.SQLite, targetcfg.S3List]) { c.Target.Bucket = "" }, "bucket"},
		{"negative concurrency", func(c *Config[sourcecfg.SQLite, targetcfg.S3List]) { c.MaxConcurrency = -2 }, "max_concurrency"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), c.wantMsg) {
				t.Errorf("error %q does not mention %q", err, c.wantMsg)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"":      zerolog.InfoLevel,
		"bogus": zerolog.InfoLevel,
	} {
		if got := (Settings{LogLevel: in}).Level(); got != want {
			t.Errorf("Level(%q): got %s want %s", in, got, want)
		}
	}
}
