package config

import (
	"fmt"
	"strings"

	"github.com/solatis/gfb/internal/types"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("compiler.budget", def.Compiler.Budget)
	v.SetDefault("compiler.concurrency", 0)
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout.String())
	v.SetDefault("server.max_document_kb", def.Server.MaxDocumentKB)
	v.SetDefault("http.addr", def.HTTP.Addr)
	v.SetDefault("export.path", def.Export.Path)
	v.SetDefault("db.url", "")

	// Bind environment variables with GFB_ prefix
	v.SetEnvPrefix("GFB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Compiler: CompilerConfig{
			Budget:      v.GetInt("compiler.budget"),
			Fields:      def.Compiler.Fields,
			Concurrency: v.GetInt("compiler.concurrency"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxDocumentKB:  v.GetInt("server.max_document_kb"),
		},
		HTTP:   HTTPConfig{Addr: v.GetString("http.addr")},
		Export: ExportConfig{Path: v.GetString("export.path")},
		DB:     DBConfig{URL: v.GetString("db.url")},
	}
	if v.IsSet("compiler.fields") {
		cfg.Compiler.Fields = v.GetStringMapString("compiler.fields")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks budget, port range and positive limits.
func validateConfig(cfg *Config) error {
	if cfg.Compiler.Budget < types.MinCharBudget {
		return fmt.Errorf("compiler.budget must be at least %d, got %d", types.MinCharBudget, cfg.Compiler.Budget)
	}
	if cfg.Compiler.Concurrency < 0 {
		return fmt.Errorf("compiler.concurrency must not be negative, got %d", cfg.Compiler.Concurrency)
	}
	if len(cfg.Compiler.Fields) == 0 {
		return fmt.Errorf("compiler.fields must name at least one field")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxDocumentKB <= 0 {
		return fmt.Errorf("server.max_document_kb must be positive, got %d", cfg.Server.MaxDocumentKB)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
// Only the config file is inspected; GFB_HMAC_SECRET itself is allowed.
func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range []string{"hmac_secret", "server.hmac_secret", "http.hmac_secret"} {
		if v.InConfig(key) {
			return fmt.Errorf("HMAC secrets not allowed in config files (use GFB_HMAC_SECRET environment variable)")
		}
	}
	return nil
}
