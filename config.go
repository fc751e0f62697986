package tvremote

import (
	"fmt"
	"os"
	"strconv"
)

// Well-known ports of the remote-control service.
const (
	PlainPort  = 8001
	SecurePort = 8002
)

const defaultName = "tvremote"

// Config holds the connection settings for one device.
type Config struct {
	// Host is the device address.
	// Fallback: TVREMOTE_HOST environment variable.
	Host string

	// Port selects the transport: 8001 plaintext, 8002 encrypted.
	// Fallback: TVREMOTE_PORT, then 8001.
	Port int

	// Name is shown on the device when pairing.
	// Fallback: TVREMOTE_NAME, then "tvremote".
	Name string

	// Token is the session token handed out on pairing.
	// Fallback: TVREMOTE_TOKEN.
	Token string

	// Paired records a completed pairing.
	Paired bool

	// MAC enables wake-on-LAN when the device is off.
	// Fallback: TVREMOTE_MAC.
	MAC string

	// Path is the persistence target. When empty the pairing result is
	// kept in memory only.
	Path string

	// Save is called with the updated config after a successful pairing
	// when Path is set.
	Save func(Config) error
}

// resolveConfig fills empty fields from environment variables and validates required fields.
func resolveConfig(cfg Config) (Config, error) {
	if cfg.Host == "" {
		cfg.Host = os.Getenv("TVREMOTE_HOST")
	}
	if cfg.Port == 0 {
		if v := os.Getenv("TVREMOTE_PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return cfg, fmt.Errorf("TVREMOTE_PORT: %w", err)
			}
			cfg.Port = port
		}
	}
	if cfg.Name == "" {
		cfg.Name = os.Getenv("TVREMOTE_NAME")
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TVREMOTE_TOKEN")
	}
	if cfg.MAC == "" {
		cfg.MAC = os.Getenv("TVREMOTE_MAC")
	}

	if cfg.Host == "" {
		return cfg, fmt.Errorf("Host is required (set in Config or TVREMOTE_HOST env)")
	}
	if cfg.Port == 0 {
		cfg.Port = PlainPort
	}
	if cfg.Port != PlainPort && cfg.Port != SecurePort {
		return cfg, fmt.Errorf("Port must be %d or %d, got %d", PlainPort, SecurePort, cfg.Port)
	}
	if cfg.Name == "" {
		cfg.Name = defaultName
	}

	return cfg, nil
}
