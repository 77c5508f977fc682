package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestGet_PanicsBeforeLoad(t *testing.T) {
	saved := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = saved
		if recover() == nil {
			t.Error("Get should panic before Load is called")
		}
	}()
	Get()
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:              "8080",
		BaseUrl:           "https://feeds.example.com",
		DBPath:            "huntfeed.db",
		FeedsDir:          "./feeds",
		SchedulerInterval: 30,
		APIAccessKey:      "test-key",
		LeaseSeconds:      86400,
		RequireSignature:  true,
		UserAgent:         "Test Agent",
		Timezone:          "UTC",
		Debug:             true,
		Version:           "test-version",
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.BaseUrl != "https://feeds.example.com" {
		t.Errorf("Expected base URL 'https://feeds.example.com', got '%s'", cfg.BaseUrl)
	}
	if cfg.LeaseSeconds != 86400 {
		t.Errorf("Expected lease 86400, got %d", cfg.LeaseSeconds)
	}
	if !cfg.RequireSignature {
		t.Error("Expected require-signature to be set")
	}
	if cfg.SchedulerInterval != 30 {
		t.Errorf("Expected scheduler interval 30, got %d", cfg.SchedulerInterval)
	}
}
