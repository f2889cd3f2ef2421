package api

import "time"

const (
	defaultAddress      = "127.0.0.1"
	defaultPort         = 8080
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// APIConfig configures the admin HTTP API. The API has no authentication
// of its own and binds to loopback unless Address says otherwise.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Default: 127.0.0.1
	Address string `mapstructure:"address" validate:"omitempty,ip|hostname" yaml:"address"`

	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// Zero selects the default (10s, 10s and 60s respectively).
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// ApplyDefaults fills zero fields.
func (c *APIConfig) ApplyDefaults() {
	setDefault(&c.Address, defaultAddress)
	setDefault(&c.Port, defaultPort)
	setDefault(&c.ReadTimeout, defaultReadTimeout)
	setDefault(&c.WriteTimeout, defaultWriteTimeout)
	setDefault(&c.IdleTimeout, defaultIdleTimeout)
}

func setDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}
