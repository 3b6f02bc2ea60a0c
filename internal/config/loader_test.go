package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/rankset/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RANKSET_ADDR", ":8080")
			_ = os.Setenv("RANKSET_MAX_SCORE", "30")
			_ = os.Setenv("RANKSET_BRANCH_FACTOR", "3")
			_ = os.Setenv("RANKSET_QUEUE_SIZE", "500")
			_ = os.Setenv("RANKSET_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxScore, convey.ShouldEqual, 30)
				convey.So(cfg.BranchFactor, convey.ShouldEqual, 3)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 500_000)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
max_score: 1000
branch_factor: 8
dedupe_size: 600000
`)
			_ = os.Setenv("RANKSET_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge the file with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MaxScore, convey.ShouldEqual, 1000)
				convey.So(cfg.BranchFactor, convey.ShouldEqual, 8)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 600000)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
max_score: 1000
`)
			_ = os.Setenv("RANKSET_CONFIG", tmpFile)
			_ = os.Setenv("RANKSET_MAX_SCORE", "2000") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")  // From file
				convey.So(cfg.MaxScore, convey.ShouldEqual, 2000) // Overridden by env
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("RANKSET_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("RANKSET_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("RANKSET_MAX_SCORE", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file clears the listen address", func() {
			tmpFile := createTempConfigFile(t, `addr: ""`)
			_ = os.Setenv("RANKSET_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a value fails validation", func() {
			cases := map[string]string{
				"RANKSET_BRANCH_FACTOR": "1",
				"RANKSET_MAX_SCORE":     "0",
				"RANKSET_LOG_LEVEL":     "loud",
				"RANKSET_LOG_FORMAT":    "xml",
			}
			for key, value := range cases {
				_ = os.Setenv(key, value)
				cfg, err := config.Load(ctx)
				_ = os.Unsetenv(key)

				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			}
		})
	})
}

// Helper functions

func clearConfigEnvVars() {
	for _, key := range []string{
		"RANKSET_CONFIG",
		"RANKSET_LOG_LEVEL",
		"RANKSET_LOG_FORMAT",
		"RANKSET_ADDR",
		"RANKSET_MAX_SCORE",
		"RANKSET_BRANCH_FACTOR",
		"RANKSET_QUEUE_SIZE",
		"RANKSET_DEDUPE_SIZE",
		"RANKSET_MAX_LEADERBOARD_LIMIT",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "rankset-*.yaml")
	if err != nil {
		t.Fatalf("create temp config: %v", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return f.Name()
}
