package config

import (
	"testing"
)

func TestSetAndGetConfig(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	cfg := DefaultConfig()
	cfg.Rules.Path = "/tmp/rules.yaml"
	SetConfig(cfg)

	got := GetConfig()
	if got == nil {
		t.Fatal("GetConfig returned nil after SetConfig")
	}
	if got.Rules.Path != "/tmp/rules.yaml" {
		t.Errorf("rules.path = %q, want /tmp/rules.yaml", got.Rules.Path)
	}
}

func TestGetConfigConcurrent(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	SetConfig(DefaultConfig())

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				if cfg := GetConfig(); cfg == nil {
					t.Error("GetConfig returned nil")
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestReloadConfigFailureKeepsExisting(t *testing.T) {
	original := GetConfig()
	defer SetConfig(original)

	cfg := DefaultConfig()
	cfg.Rules.Path = "/keep/me.yaml"
	SetConfig(cfg)

	if err := ReloadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected reload error for missing file")
	}

	if got := GetConfig(); got.Rules.Path != "/keep/me.yaml" {
		t.Errorf("existing config should survive failed reload, got path %q", got.Rules.Path)
	}
}
