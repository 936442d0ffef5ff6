// Package config provides configuration management for gfb commands and services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/gfb/internal/types"
)

// Config holds configuration for the compiler, the servers and the filter registry.
type Config struct {
	Compiler CompilerConfig
	Server   ServerConfig
	HTTP     HTTPConfig
	Export   ExportConfig
	DB       DBConfig
}

// CompilerConfig holds query compiler options.
type CompilerConfig struct {
	Budget      int
	Fields      map[string]string
	Concurrency int
}

// ServerConfig holds configuration for the gRPC filter service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxDocumentKB  int
}

// HTTPConfig holds configuration for the HTTP API.
type HTTPConfig struct {
	Addr string
}

// ExportConfig holds defaults for the XML feed export.
type ExportConfig struct {
	Path string
}

// DBConfig holds the filter registry connection.
type DBConfig struct {
	URL string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Budget: types.DefaultCharBudget,
			Fields: types.DefaultFields(),
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			RequestTimeout: 30 * time.Second,
			MaxDocumentKB:  1024,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Export: ExportConfig{
			Path: "~/Documents/gmail_filters.xml",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports GFB_HMAC_SECRET (single) and GFB_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("GFB_HMAC_SECRET"); val != "" {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("GFB_HMAC_SECRET: %w", err)
		}
		secrets[secretID] = decoded
	}

	// Numbered secrets keep old keys valid while new ones roll out
	for i := 1; ; i++ {
		key := fmt.Sprintf("GFB_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check GFB_HMAC_SECRET and GFB_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
	}

	return secrets, nil
}

// ParseHMACSecret decodes a base64-encoded HMAC secret.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}
