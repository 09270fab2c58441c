// Package config loads server and client settings from TOML and
// applies positional command-line overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"bookd/internal/protocol"
)

type ServerConfig struct {
	Port       int      `toml:"port"`
	Semantics  string   `toml:"semantics"`
	LossRate   float64  `toml:"loss_rate"`
	Seed       int64    `toml:"seed"`
	AdminAddr  string   `toml:"admin_addr"`
	Facilities []string `toml:"facilities"`
}

type ClientConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	Semantics string  `toml:"semantics"`
	LossRate  float64 `toml:"loss_rate"`
	Seed      int64   `toml:"seed"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:       5000,
		Semantics:  "AMO",
		LossRate:   0.0,
		Seed:       42,
		Facilities: []string{"RoomA", "RoomB", "LT1"},
	}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:      "127.0.0.1",
		Port:      5000,
		Semantics: "AMO",
		LossRate:  0.0,
		Seed:      777,
	}
}

// LoadServerConfig reads path over the defaults. A missing file is not
// an error; the defaults stand.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ApplyArgs overlays the positional CLI contract
// `port semantics lossRate seed` onto the config.
func (c *ServerConfig) ApplyArgs(args []string) error {
	if len(args) >= 1 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("config: bad port %q: %w", args[0], err)
		}
		c.Port = port
	}
	if len(args) >= 2 {
		c.Semantics = args[1]
	}
	if len(args) >= 3 {
		rate, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("config: bad loss rate %q: %w", args[2], err)
		}
		c.LossRate = rate
	}
	if len(args) >= 4 {
		seed, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("config: bad seed %q: %w", args[3], err)
		}
		c.Seed = seed
	}
	return c.Validate()
}

// ApplyArgs overlays `host port semantics lossRate seed`.
func (c *ClientConfig) ApplyArgs(args []string) error {
	if len(args) >= 1 {
		c.Host = args[0]
	}
	if len(args) >= 2 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("config: bad port %q: %w", args[1], err)
		}
		c.Port = port
	}
	if len(args) >= 3 {
		c.Semantics = args[2]
	}
	if len(args) >= 4 {
		rate, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("config: bad loss rate %q: %w", args[3], err)
		}
		c.LossRate = rate
	}
	if len(args) >= 5 {
		seed, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			return fmt.Errorf("config: bad seed %q: %w", args[4], err)
		}
		c.Seed = seed
	}
	return c.Validate()
}

func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port out of range: %d", c.Port)
	}
	if _, err := ParseSemantics(c.Semantics); err != nil {
		return err
	}
	if c.LossRate < 0 || c.LossRate > 1 {
		return fmt.Errorf("config: loss rate out of range: %g", c.LossRate)
	}
	if len(c.Facilities) == 0 {
		return fmt.Errorf("config: no facilities configured")
	}
	return nil
}

func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("config: missing host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port out of range: %d", c.Port)
	}
	if _, err := ParseSemantics(c.Semantics); err != nil {
		return err
	}
	if c.LossRate < 0 || c.LossRate > 1 {
		return fmt.Errorf("config: loss rate out of range: %g", c.LossRate)
	}
	return nil
}

// ParseSemantics maps "AMO"/"ALO" (case-insensitive) to the wire tag.
func ParseSemantics(s string) (byte, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AMO":
		return protocol.SemAMO, nil
	case "ALO":
		return protocol.SemALO, nil
	default:
		return 0, fmt.Errorf("config: unknown semantics %q (want AMO or ALO)", s)
	}
}

// SemanticsName renders a wire tag for logs and banners.
func SemanticsName(sem byte) string {
	if sem == protocol.SemAMO {
		return "AMO"
	}
	return "ALO"
}
