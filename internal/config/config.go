// Package config reads the four environment variables that configure
// either role of the binary. Four variables do not justify a flags or
// viper layer; plain os.Getenv with defaults is enough.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Role selects which reactor this process runs.
type Role int

const (
	RoleGateway Role = iota
	RoleWorker
)

// Config holds the resolved environment.
type Config struct {
	Role      Role
	Port      int
	SocketDir string
	Host      string
}

// Load reads MODE, PORT, SOCKET_DIR and HOST from the environment.
// SOCKET_DIR is required in both roles (the gateway discovers worker
// sockets there; the worker binds its own socket there).
func Load() (Config, error) {
	cfg := Config{
		Role: RoleGateway,
		Port: 9999,
		Host: "worker",
	}

	if os.Getenv("MODE") == "worker" {
		cfg.Role = RoleWorker
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	cfg.SocketDir = os.Getenv("SOCKET_DIR")
	if cfg.SocketDir == "" {
		return Config{}, fmt.Errorf("config: SOCKET_DIR environment variable is required")
	}

	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}

	return cfg, nil
}
