package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_i2c/internal/config"
)

func TestNewCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	if err := os.WriteFile(path, []byte("TOPIC_IMU=cli/imu\nLOG_LEVEL=warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defer log.SetLevel(log.InfoLevel)

	var got *config.Config
	cmd := NewCommand("test", "test command", func(ctx context.Context, cfg *config.Config) error {
		if ctx.Err() != nil {
			t.Error("context already done")
		}
		got = cfg
		return nil
	})
	cmd.SetArgs([]string{"--config", path, "--log-level", "debug"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got == nil || got.TopicIMU != "cli/imu" {
		t.Fatalf("config %+v", got)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("log level %v, want flag override debug", log.GetLevel())
	}
}
