package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	Bind          string
	Port          int
	RedisURL      string
	RoomCode      string
	SessionSecret string
	PollInterval  time.Duration
	LogLevel      string
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.RoomCode == "" {
		return errors.New("room code must not be empty")
	}
	if c.SessionSecret == "" {
		return errors.New("session secret must not be empty")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
