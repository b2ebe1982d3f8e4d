package internal

// Option adjusts how Run assembles the application.
type Option func(*application)

type application struct {
	config *Config
	watch  bool
}

// WithConfig supplies a configuration in place of the defaults.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithWatch keeps the process alive after the initial migration, mirroring
// source changes into the vault and serving the HTTP API.
func WithWatch() Option {
	return func(a *application) {
		a.watch = true
	}
}
