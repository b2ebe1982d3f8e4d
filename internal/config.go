package internal

import (
	"log/slog"
	"net"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Supported auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the full application configuration tree.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Source   SourceConfig      `yaml:"source"`
	Target   TargetConfig      `yaml:"target"`
	Migrate  MigrateConfig     `yaml:"migrate"`
	Manifest ManifestConfig    `yaml:"manifest"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate checks every section and stops at the first failure.
func (c *Config) Validate() error {
	sections := []interface{ Validate() error }{
		&c.App, &c.Source, &c.Target, &c.Migrate, &c.Manifest, &c.Auth,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds process-level settings.
type ApplicationConfig struct {
	LogLevel string     `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// SlogLevel maps the configured level name onto a slog.Level.
// Unrecognised values fall back to info.
func (c *ApplicationConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// HTTPConfig holds the listen settings for the watch-mode server.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address renders the listen address for http.Server. An empty host binds
// every interface.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// requirePath covers the sections that are nothing but a mandatory path.
func requirePath(section any, path *string) error {
	return validation.ValidateStruct(section,
		validation.Field(path, validation.Required),
	)
}

// SourceConfig points at the exported Markdown directory notes are read
// from.
type SourceConfig struct {
	Path string `yaml:"path"`
}

func (c *SourceConfig) Validate() error { return requirePath(c, &c.Path) }

// TargetConfig points at the vault directory notes are written to.
type TargetConfig struct {
	Path string `yaml:"path"`
}

func (c *TargetConfig) Validate() error { return requirePath(c, &c.Path) }

// MigrateConfig controls how migration runs behave.
type MigrateConfig struct {
	Workers     int    `yaml:"workers"`
	ResourceDir string `yaml:"resource_dir"`
	Incremental bool   `yaml:"incremental"`

	// DryRun is settable from the command line only.
	DryRun bool `yaml:"-"`
}

func (c *MigrateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.ResourceDir, validation.Required),
	)
}

// ManifestConfig locates the migration manifest database.
type ManifestConfig struct {
	Path string `yaml:"path"`
}

func (c *ManifestConfig) Validate() error { return requirePath(c, &c.Path) }

// AuthConfig guards the watch-mode API. In "token" mode every request must
// present the configured bearer token; the default "disabled" leaves the
// API open for local use.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

func (c *AuthConfig) Validate() error {
	// Treat an absent mode as disabled so configs can omit the auth section.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	rules := []*validation.FieldRules{
		validation.Field(&c.Mode, validation.In(AuthModeDisabled, AuthModeToken)),
	}
	if c.Mode == AuthModeToken {
		rules = append(rules, validation.Field(&c.Token, validation.Required.Error("required in token mode")))
	}
	return validation.ValidateStruct(c, rules...)
}

// AuthEnabled reports whether requests must carry a bearer token.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns the configuration used when no file or flags
// override it.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: "info",
			HTTP: HTTPConfig{
				Port: 8343,
			},
		},
		Source: SourceConfig{
			Path: "./export",
		},
		Target: TargetConfig{
			Path: "./vault",
		},
		Migrate: MigrateConfig{
			Workers:     4,
			ResourceDir: "_resources",
		},
		Manifest: ManifestConfig{
			Path: "./ehwaz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
