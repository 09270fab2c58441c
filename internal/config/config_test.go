package config

import (
	"os"
	"path/filepath"
	"testing"

	"bookd/internal/protocol"
)

func TestServerDefaults(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Port != 5000 || cfg.Semantics != "AMO" || cfg.LossRate != 0.0 || cfg.Seed != 42 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Facilities) != 3 {
		t.Fatalf("expected 3 preloaded facilities, got %v", cfg.Facilities)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestClientDefaults(t *testing.T) {
	cfg := DefaultClientConfig()
	if cfg.Host != "127.0.0.1" || cfg.Port != 5000 || cfg.Semantics != "AMO" || cfg.Seed != 777 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadServerConfigFromToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookd.toml")
	body := `
port = 6001
semantics = "ALO"
loss_rate = 0.25
seed = 99
admin_addr = ":9100"
facilities = ["RoomA", "Aud1"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 6001 || cfg.Semantics != "ALO" || cfg.LossRate != 0.25 || cfg.Seed != 99 {
		t.Fatalf("loaded config wrong: %+v", cfg)
	}
	if cfg.AdminAddr != ":9100" || len(cfg.Facilities) != 2 {
		t.Fatalf("loaded config wrong: %+v", cfg)
	}
}

func TestLoadServerConfigMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 5000 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestServerApplyArgs(t *testing.T) {
	cfg := DefaultServerConfig()
	if err := cfg.ApplyArgs([]string{"7000", "alo", "0.5", "-3"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Port != 7000 || cfg.Semantics != "alo" || cfg.LossRate != 0.5 || cfg.Seed != -3 {
		t.Fatalf("args not applied: %+v", cfg)
	}

	cfg = DefaultServerConfig()
	if err := cfg.ApplyArgs([]string{"8000"}); err != nil {
		t.Fatalf("apply partial: %v", err)
	}
	if cfg.Port != 8000 || cfg.Semantics != "AMO" {
		t.Fatalf("partial args wrong: %+v", cfg)
	}

	cfg = DefaultServerConfig()
	if err := cfg.ApplyArgs([]string{"nope"}); err == nil {
		t.Fatalf("expected error on bad port")
	}
}

func TestClientApplyArgs(t *testing.T) {
	cfg := DefaultClientConfig()
	if err := cfg.ApplyArgs([]string{"10.1.2.3", "5555", "ALO", "0.1", "12"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Host != "10.1.2.3" || cfg.Port != 5555 || cfg.Semantics != "ALO" ||
		cfg.LossRate != 0.1 || cfg.Seed != 12 {
		t.Fatalf("args not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.LossRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("loss rate 1.5 accepted")
	}
	cfg = DefaultServerConfig()
	cfg.Semantics = "exactly-once"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("unknown semantics accepted")
	}
	cfg = DefaultServerConfig()
	cfg.Facilities = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("empty facility list accepted")
	}
}

func TestParseSemantics(t *testing.T) {
	cases := []struct {
		in   string
		want byte
		ok   bool
	}{
		{"AMO", protocol.SemAMO, true},
		{"amo", protocol.SemAMO, true},
		{" Alo ", protocol.SemALO, true},
		{"ALO", protocol.SemALO, true},
		{"once", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseSemantics(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseSemantics(%q) = %d, %v", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseSemantics(%q) accepted", tc.in)
		}
	}
}

func TestSemanticsName(t *testing.T) {
	if SemanticsName(protocol.SemAMO) != "AMO" || SemanticsName(protocol.SemALO) != "ALO" {
		t.Fatalf("semantics names wrong")
	}
}
