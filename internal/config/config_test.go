package config

import "testing"

func TestApplyEnvOverridesPreservesExplicitYAMLFalse(t *testing.T) {
	f := false
	cfg := &Config{Worker: WorkerConfig{EnableIdleRecheck: &f}}

	ApplyEnvOverrides(cfg)

	if cfg.Worker.EnableIdleRecheck == nil || *cfg.Worker.EnableIdleRecheck {
		t.Errorf("expected YAML-set false to survive when env var is unset, got %v", cfg.Worker.EnableIdleRecheck)
	}
}

func TestApplyEnvOverridesDefaultsUnsetToTrue(t *testing.T) {
	cfg := &Config{}

	ApplyEnvOverrides(cfg)

	if cfg.Worker.EnableIdleRecheck == nil || !*cfg.Worker.EnableIdleRecheck {
		t.Errorf("expected default true when neither YAML nor env set it, got %v", cfg.Worker.EnableIdleRecheck)
	}
}

func TestApplyEnvOverridesEnvOverridesYAML(t *testing.T) {
	tr := true
	cfg := &Config{Worker: WorkerConfig{EnableIdleRecheck: &tr}}
	t.Setenv("WORKER_ENABLE_IDLE_RECHECK", "false")

	ApplyEnvOverrides(cfg)

	if cfg.Worker.EnableIdleRecheck == nil || *cfg.Worker.EnableIdleRecheck {
		t.Errorf("expected env var to override YAML-set true, got %v", cfg.Worker.EnableIdleRecheck)
	}
}
