// Package config loads runtime settings from viper and validates them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/lookup"
	"github.com/inodb/ideogram-genes/internal/view"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// IDEOGRAM_GENES_SERVICE_HOST.
const EnvPrefix = "IDEOGRAM_GENES"

// FileName is the config file name looked up in the home directory.
const FileName = ".ideogram-genes.yaml"

// Config holds every setting read at start-up.
type Config struct {
	Service     Service `mapstructure:"service"`
	Assembly    string  `mapstructure:"assembly" validate:"required"`
	Orientation string  `mapstructure:"orientation" validate:"omitempty,oneof=vertical horizontal"`
	Lookup      Lookup  `mapstructure:"lookup"`
	Breaker     Breaker `mapstructure:"breaker"`
	Cache       Cache   `mapstructure:"cache"`
	Server      Server  `mapstructure:"server"`
	Log         Log     `mapstructure:"log"`
}

// Service locates the annotation service.
type Service struct {
	Scheme  string        `mapstructure:"scheme" validate:"oneof=http https"`
	Host    string        `mapstructure:"host" validate:"required,hostname_rfc1123|ip"`
	Port    int           `mapstructure:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// Lookup tunes the resolution pipeline.
type Lookup struct {
	Concurrency  int           `mapstructure:"concurrency" validate:"min=0"`
	Ordered      bool          `mapstructure:"ordered"`
	Retries      int           `mapstructure:"retries" validate:"min=0,max=10"`
	RetryInitial time.Duration `mapstructure:"retry_initial" validate:"gt=0"`
}

// Breaker configures the circuit breaker around the annotation service.
type Breaker struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests" validate:"min=1"`
	Interval         time.Duration `mapstructure:"interval" validate:"min=0"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MinRequests      uint32        `mapstructure:"min_requests" validate:"min=1"`
	FailureThreshold float64       `mapstructure:"failure_threshold" validate:"gt=0,lte=1"`
}

// Cache configures the in-process hit cache.
type Cache struct {
	Enabled       bool          `mapstructure:"enabled"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	PurgeInterval time.Duration `mapstructure:"purge_interval" validate:"gt=0"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	svc := lookup.DefaultServiceConfig()
	v.SetDefault("service.scheme", svc.Scheme)
	v.SetDefault("service.host", svc.Host)
	v.SetDefault("service.port", svc.Port)
	v.SetDefault("service.timeout", svc.Timeout)

	v.SetDefault("assembly", assembly.Default.String())
	v.SetDefault("orientation", string(view.Vertical))

	v.SetDefault("lookup.concurrency", 0)
	v.SetDefault("lookup.ordered", false)
	v.SetDefault("lookup.retries", 2)
	v.SetDefault("lookup.retry_initial", 250*time.Millisecond)

	br := lookup.DefaultBreakerConfig()
	v.SetDefault("breaker.enabled", br.Enabled)
	v.SetDefault("breaker.max_requests", br.MaxRequests)
	v.SetDefault("breaker.interval", br.Interval)
	v.SetDefault("breaker.timeout", br.Timeout)
	v.SetDefault("breaker.min_requests", br.MinRequests)
	v.SetDefault("breaker.failure_threshold", br.FailureThreshold)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.purge_interval", 10*time.Minute)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// BindEnv makes IDEOGRAM_GENES_* variables override config keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that the assembly and orientation
// are supported.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if _, err := assembly.Parse(c.Assembly); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AssemblyValue returns the parsed default assembly.
func (c Config) AssemblyValue() assembly.Assembly {
	a, err := assembly.Parse(c.Assembly)
	if err != nil {
		return assembly.Default
	}
	return a
}

// OrientationValue returns the parsed orientation.
func (c Config) OrientationValue() view.Orientation {
	o, err := view.ParseOrientation(c.Orientation)
	if err != nil {
		return view.Vertical
	}
	return o
}

// ServiceConfig converts the service section for lookup.NewClient.
func (c Config) ServiceConfig() lookup.ServiceConfig {
	return lookup.ServiceConfig{
		Scheme:  c.Service.Scheme,
		Host:    c.Service.Host,
		Port:    c.Service.Port,
		Timeout: c.Service.Timeout,
	}
}

// BreakerConfig converts the breaker section for lookup.Client.SetBreaker.
func (c Config) BreakerConfig() lookup.BreakerConfig {
	return lookup.BreakerConfig{
		Enabled:          c.Breaker.Enabled,
		MaxRequests:      c.Breaker.MaxRequests,
		Interval:         c.Breaker.Interval,
		Timeout:          c.Breaker.Timeout,
		MinRequests:      c.Breaker.MinRequests,
		FailureThreshold: c.Breaker.FailureThreshold,
	}
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
