// Package config loads process configuration from file, environment, and
// flags, extending config/config.go's validation helpers with a
// github.com/spf13/viper layer exactly as cli/root.go's initConfig does
// (file + env + flag precedence), recognizing the keys spec §6 documents.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved process configuration.
type Config struct {
	CouchDB     CouchDBConfig
	Controllers map[string]ControllerConfig // keyed by kindPlural
	GC          GCConfig
	Log         LogConfig
	HTTP        HTTPConfig
}

// CouchDBConfig configures the Store Adapter's backing document database.
type CouchDBConfig struct {
	URL      string
	Username string
	Password string
}

// ControllerConfig configures one kind's Controller Loop.
type ControllerConfig struct {
	PollingInterval time.Duration
}

// GCConfig configures the GC sweeper's tombstone poll.
type GCConfig struct {
	PollingInterval time.Duration
}

// LogConfig configures the logging package.
type LogConfig struct {
	Level  string
	Format string
}

// HTTPConfig configures the httpapi package's listener.
type HTTPConfig struct {
	Addr string
}

// controlledKinds lists every kindPlural with its own controllers.<kind>
// config section.
var controlledKinds = []string{
	"users", "clients", "authcodes",
	"policies", "policyattachments", "roles", "roleattachments",
}

// Load reads configuration from (in ascending precedence) defaults, an
// optional config file, and environment variables prefixed FORGE_,
// mirroring cli/root.go's initConfig/viper.AutomaticEnv wiring. cfgFile
// may be empty, in which case ./.forge.yaml and $HOME/.forge.yaml are
// searched and a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("forge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(".forge")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // absent config file is not an error
	}

	cfg := &Config{
		CouchDB: CouchDBConfig{
			URL:      v.GetString("couchdb.url"),
			Username: v.GetString("couchdb.username"),
			Password: v.GetString("couchdb.password"),
		},
		GC: GCConfig{
			PollingInterval: v.GetDuration("gc.pollingInterval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		Controllers: map[string]ControllerConfig{},
	}

	for _, kind := range controlledKinds {
		key := "controllers." + kind + ".pollingInterval"
		v.SetDefault(key, 5*time.Minute)
		cfg.Controllers[kind] = ControllerConfig{PollingInterval: v.GetDuration(key)}
	}

	return cfg, Validate(cfg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("couchdb.url", "http://localhost:5984")
	v.SetDefault("gc.pollingInterval", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.addr", ":8080")
}

// Validate checks the loaded Config against spec §6's recognized values,
// reusing the teacher's Validator accumulation pattern.
func Validate(cfg *Config) error {
	validator := NewValidator()
	validator.RequireURL("couchdb.url", cfg.CouchDB.URL)
	validator.RequireOneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error"})
	validator.RequireOneOf("log.format", cfg.Log.Format, []string{"json", "text"})
	return validator.Validate()
}

// Validator accumulates configuration validation errors, grounded on the
// teacher's config.Validator.
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// RequireURL validates that a string is a non-empty http(s) URL.
func (v *Validator) RequireURL(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	if len(value) < 7 || (value[:7] != "http://" && (len(value) < 8 || value[:8] != "https://")) {
		v.errors = append(v.errors, fmt.Sprintf("%s must be a valid URL (http:// or https://)", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %v", field, allowed))
}

// IsValid returns true if there are no validation errors.
func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

// Errors returns all validation errors.
func (v *Validator) Errors() []string { return v.errors }

// Validate runs validation and returns an error if invalid.
func (v *Validator) Validate() error {
	if v.IsValid() {
		return nil
	}
	msg := ""
	for i, e := range v.errors {
		if i > 0 {
			msg += "; "
		}
		msg += e
	}
	return fmt.Errorf("config: validation failed: %s", msg)
}
