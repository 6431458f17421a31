package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
}

func TestLoadConfig_OverlaysOnDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "advertisement:\n  idealReach: 42\nnode:\n  id: deadbeef\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Advertisement.IdealReach != 42 {
		t.Fatalf("expected overlaid idealReach=42, got %d", cfg.Advertisement.IdealReach)
	}
	if cfg.Advertisement.MinRouteLength != 7 {
		t.Fatalf("expected default minRouteLength to survive overlay, got %d", cfg.Advertisement.MinRouteLength)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	t.Setenv("ADVERTISEMENT_IDEAL_REACH", "55")
	t.Setenv("LOGGER_ENABLED", "true")
	t.Setenv("NODE_ID", "cafebabe")

	cfg.ApplyEnvOverrides()

	if cfg.Advertisement.IdealReach != 55 {
		t.Fatalf("expected env override to set idealReach=55, got %d", cfg.Advertisement.IdealReach)
	}
	if !cfg.Logger.Active {
		t.Fatalf("expected env override to enable logger")
	}
	if cfg.Node.Id != "cafebabe" {
		t.Fatalf("expected env override to set node id")
	}
}

func TestValidateConfig_RejectsBadAdvertisementTunables(t *testing.T) {
	cfg := Default()
	cfg.Advertisement.MaxRouteLength = cfg.Advertisement.MinRouteLength
	if err := cfg.ValidateConfig(); err == nil {
		t.Fatalf("expected an error when maxRouteLength <= minRouteLength")
	}
}

func TestValidateConfig_RequiresEndpointForOTLP(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Tracing.Enabled = true
	cfg.Telemetry.Tracing.Exporter = "otlp"
	if err := cfg.ValidateConfig(); err == nil {
		t.Fatalf("expected an error when otlp exporter has no endpoint")
	}
}

func TestValidateConfig_RequiresPathForFilePersistence(t *testing.T) {
	cfg := Default()
	cfg.Persistence.Kind = "file"
	if err := cfg.ValidateConfig(); err == nil {
		t.Fatalf("expected an error when persistence.kind=file has no path")
	}
}
