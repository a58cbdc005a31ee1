package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ProcessEnv holds process level settings read from the environment. Command
// line flags take their defaults from these values.
type ProcessEnv struct {
	Listen        string `env:"ACTIVITY_LISTEN" envDefault:":8080"`
	SerialPort    string `env:"ACTIVITY_SERIAL_PORT" envDefault:"/dev/ttyUSB0"`
	BaudRate      int    `env:"ACTIVITY_BAUD_RATE" envDefault:"115200"`
	ConfigPath    string `env:"ACTIVITY_CONFIG"`
	DevMode       bool   `env:"ACTIVITY_DEV"`
	DisableSensor bool   `env:"ACTIVITY_DISABLE_SENSOR"`
	AutoStart     bool   `env:"ACTIVITY_AUTOSTART"`
}

// ParseProcessEnv loads ProcessEnv from environment variables.
func ParseProcessEnv() (ProcessEnv, error) {
	var cfg ProcessEnv
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
