// Package tokenstore persists pairing credentials between runs so a
// remote can reconnect without prompting on the device again.
package tokenstore

import (
	"context"
	"errors"
	"time"

	tvremote "github.com/tvremote/go-tvremote"
)

// ErrNotFound is returned by Load when no credentials exist for a host.
var ErrNotFound = errors.New("tokenstore: no credentials for host")

// Credentials is what pairing with one device produced.
type Credentials struct {
	Host      string    `yaml:"host"`
	Name      string    `yaml:"name,omitempty"`
	Port      int       `yaml:"port,omitempty"`
	Token     string    `yaml:"token,omitempty"`
	Paired    bool      `yaml:"paired"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Store loads and saves credentials keyed by device host.
type Store interface {
	Load(ctx context.Context, host string) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}

// Apply copies stored credentials into cfg. Fields already set in cfg win,
// except Paired which is only ever turned on.
func Apply(cfg tvremote.Config, creds Credentials) tvremote.Config {
	if cfg.Name == "" {
		cfg.Name = creds.Name
	}
	if cfg.Port == 0 {
		cfg.Port = creds.Port
	}
	if cfg.Token == "" {
		cfg.Token = creds.Token
	}
	cfg.Paired = cfg.Paired || creds.Paired
	return cfg
}

// FromConfig extracts the persistable part of cfg.
func FromConfig(cfg tvremote.Config) Credentials {
	return Credentials{
		Host:      cfg.Host,
		Name:      cfg.Name,
		Port:      cfg.Port,
		Token:     cfg.Token,
		Paired:    cfg.Paired,
		UpdatedAt: time.Now().UTC(),
	}
}

// SaveHook adapts s to the Config.Save callback.
func SaveHook(ctx context.Context, s Store) func(tvremote.Config) error {
	return func(cfg tvremote.Config) error {
		return s.Save(ctx, FromConfig(cfg))
	}
}
