package internal

import (
	"log/slog"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestAuthConfigValidate(t *testing.T) {
	cases := []struct {
		name        string
		cfg         AuthConfig
		wantErr     bool
		wantEnabled bool
	}{
		{"disabled", AuthConfig{Mode: "disabled"}, false, false},
		{"empty mode defaults to disabled", AuthConfig{}, false, false},
		{"token mode with token", AuthConfig{Mode: "token", Token: "mysecret"}, false, true},
		{"token mode without token", AuthConfig{Mode: "token"}, true, false},
		{"unknown mode", AuthConfig{Mode: "magic", Token: "x"}, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && cfg.Mode == "" {
				t.Error("Validate left the mode empty instead of defaulting it")
			}
			if got := cfg.AuthEnabled(); got != tc.wantEnabled {
				t.Errorf("AuthEnabled() = %v, want %v", got, tc.wantEnabled)
			}
		})
	}
}

func TestConfigValidateCoversAuth(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = AuthModeToken
	if err := cfg.Validate(); err == nil {
		t.Fatal("token mode without a token must fail the full validation")
	}
}

func TestPathSectionsRequired(t *testing.T) {
	sections := map[string]interface{ Validate() error }{
		"source":   &SourceConfig{},
		"target":   &TargetConfig{},
		"manifest": &ManifestConfig{},
	}
	for name, s := range sections {
		if err := s.Validate(); err == nil {
			t.Errorf("%s: empty path should fail validation", name)
		}
	}
}

func TestMigrateConfigWorkerBounds(t *testing.T) {
	cases := []struct {
		name    string
		workers int
		wantErr bool
	}{
		{"zero workers", 0, true},
		{"one worker", 1, false},
		{"default workers", 4, false},
		{"max workers", 64, false},
		{"too many workers", 65, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := MigrateConfig{Workers: tc.workers, ResourceDir: "_resources"}
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMigrateConfigResourceDirRequired(t *testing.T) {
	cfg := MigrateConfig{Workers: 4}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty resource dir should fail validation")
	}
}

func TestHTTPConfigAddress(t *testing.T) {
	cases := []struct {
		cfg  HTTPConfig
		want string
	}{
		{HTTPConfig{Port: 8343}, ":8343"},
		{HTTPConfig{Host: "127.0.0.1", Port: 9000}, "127.0.0.1:9000"},
	}
	for _, tc := range cases {
		if got := tc.cfg.Address(); got != tc.want {
			t.Errorf("Address() = %q, want %q", got, tc.want)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		cfg := ApplicationConfig{LogLevel: tc.level}
		if got := cfg.SlogLevel(); got != tc.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}
