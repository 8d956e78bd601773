/*
Package configs loads runtime settings from environment variables.

The relay server reads its environment, port, allowed origins, message size
limit, and optional S3 media storage settings. The terminal client reads the
server URL, its display name, the outbound queue size, and the relay's message
size limit.
*/
package configs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"livechat/internal/app/protocol"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/randx"
)

const (
	defaultEnvironment     = "development"
	defaultPort            = 8080
	defaultMaxMessageBytes = 5000
	defaultServerURL       = "ws://localhost:8080/ws"
	defaultQueueSize       = 64
)

// AppConfig holds the relay server settings.
type AppConfig struct {
	// General Server Settings
	Environment     string
	Port            int
	MaxMessageBytes int

	// Security Settings
	AllowedOrigins []string

	// S3 Storage Settings, all empty when media sharing is disabled
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == defaultEnvironment
}

// MediaEnabled reports whether S3 storage is configured.
func (c *AppConfig) MediaEnabled() bool {
	return c.S3BucketName != ""
}

// ClientConfig holds the terminal client settings.
type ClientConfig struct {
	Environment string
	ServerURL   string
	Username    string
	QueueSize   int

	// MaxMessageBytes must match the relay's MAX_MESSAGE_BYTES; it sizes the
	// input line and the transport's read limit.
	MaxMessageBytes int
}

// Validate checks the settings command-line flags may have overridden.
func (c *ClientConfig) Validate() error {
	c.Username = strings.TrimSpace(c.Username)

	switch {
	case c.Username == "":
		return errors.New("display name must not be empty")
	case len(c.Username) > protocol.MaxNameBytes:
		return errs.NewError(errs.ErrNameTooLong, protocol.MaxNameBytes)
	case c.QueueSize <= 0:
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	case c.MaxMessageBytes <= 0:
		return fmt.Errorf("MAX_MESSAGE_BYTES must be positive, got %d", c.MaxMessageBytes)
	}
	return nil
}

// ReadLimit returns the largest inbound frame the client must accept.
func (c *ClientConfig) ReadLimit() int64 {
	return protocol.MaxMessageFrameBytes(c.MaxMessageBytes)
}

// IsDevelopment reports whether the client runs in the development environment.
func (c *ClientConfig) IsDevelopment() bool {
	return c.Environment == defaultEnvironment
}

// APIBaseURL derives the relay's HTTP base URL from the websocket URL:
// ws becomes http, wss becomes https, and the path is dropped.
func (c *ClientConfig) APIBaseURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", c.ServerURL, err)
	}

	switch u.Scheme {
	case "ws", "http":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}

	return u.Scheme + "://" + u.Host, nil
}

// LoadConfig reads the relay server configuration from the environment.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Environment: envOr("ENVIRONMENT", defaultEnvironment),
	}

	port, err := intEnv("PORT", defaultPort)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the allowed range (%d-%d)", port, 1024, 65535)
	}
	cfg.Port = port

	maxBytes, err := intEnv("MAX_MESSAGE_BYTES", defaultMaxMessageBytes)
	if err != nil {
		return nil, err
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("MAX_MESSAGE_BYTES must be positive, got %d", maxBytes)
	}
	cfg.MaxMessageBytes = maxBytes

	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3PublicURL = strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/")

	if err := validateStorage(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadClientConfig reads the terminal client configuration from the environment.
// A missing CHAT_USERNAME gets a random guest nickname.
func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{
		Environment: envOr("ENVIRONMENT", defaultEnvironment),
		ServerURL:   envOr("CHAT_SERVER_URL", defaultServerURL),
		Username:    strings.TrimSpace(os.Getenv("CHAT_USERNAME")),
	}

	if cfg.Username == "" {
		name, err := randx.UserNickname()
		if err != nil {
			return nil, fmt.Errorf("failed to generate a username: %w", err)
		}
		cfg.Username = name
	}

	queueSize, err := intEnv("CHAT_QUEUE_SIZE", defaultQueueSize)
	if err != nil {
		return nil, err
	}
	if queueSize <= 0 {
		return nil, fmt.Errorf("CHAT_QUEUE_SIZE must be positive, got %d", queueSize)
	}
	cfg.QueueSize = queueSize

	maxBytes, err := intEnv("MAX_MESSAGE_BYTES", defaultMaxMessageBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessageBytes = maxBytes

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateStorage accepts either no S3 settings at all or a complete set.
func validateStorage(cfg *AppConfig) error {
	settings := map[string]string{
		"S3_BUCKET_NAME":       cfg.S3BucketName,
		"S3_ENDPOINT":          cfg.S3Endpoint,
		"S3_ACCESS_KEY_ID":     cfg.S3AccessKeyID,
		"S3_SECRET_ACCESS_KEY": cfg.S3SecretAccessKey,
		"S3_PUBLIC_URL":        cfg.S3PublicURL,
	}

	var missing []string
	for _, name := range []string{"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_PUBLIC_URL"} {
		if settings[name] == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 || len(missing) == len(settings) {
		return nil
	}
	return fmt.Errorf("incomplete S3 configuration, missing %s", strings.Join(missing, ", "))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
