package common

import (
	"fmt"
	"os"
	"strings"
)

// OtlpConfig identifies the process to the telemetry backend.
type OtlpConfig interface {
	Debug() bool
	Environment() string
	Dsn() string
	ServiceName() string
	Version() string
	Key() string
}

type DevOtlpConfig struct {
	debug       bool
	dsn         string
	serviceName string
	environment string
	version     string
	key         string
}

// NewDevOtlpConfig reads the telemetry identity from the environment:
// DSN, SERVICE_NAME, ENVIRONMENT, VERSION, KEY and the optional Debug
// toggle.
func NewDevOtlpConfig() (*DevOtlpConfig, error) {
	cfg := &DevOtlpConfig{}
	cfg.debug = strings.ToLower(os.Getenv("Debug")) == "true"

	cfg.dsn = os.Getenv("DSN")
	if cfg.dsn == "" {
		return nil, fmt.Errorf("DSN is required")
	}

	cfg.serviceName = os.Getenv("SERVICE_NAME")
	if cfg.serviceName == "" {
		return nil, fmt.Errorf("SERVICE_NAME is required")
	}

	cfg.environment = os.Getenv("ENVIRONMENT")
	if cfg.environment == "" {
		return nil, fmt.Errorf("ENVIRONMENT is required")
	}

	cfg.version = os.Getenv("VERSION")
	if cfg.version == "" {
		return nil, fmt.Errorf("VERSION is required")
	}

	cfg.key = os.Getenv("KEY")
	if cfg.key == "" {
		return nil, fmt.Errorf("KEY is required")
	}
	return cfg, nil
}

// NewLocalOtlpConfig is the no-backend variant for demos and tests.
func NewLocalOtlpConfig(serviceName string, debug bool) *DevOtlpConfig {
	return &DevOtlpConfig{
		debug:       debug,
		dsn:         "local",
		serviceName: serviceName,
		environment: "local",
		version:     "dev",
		key:         "local.key",
	}
}

func (d *DevOtlpConfig) Debug() bool {
	return d.debug
}

func (d *DevOtlpConfig) Environment() string {
	return d.environment
}

func (d *DevOtlpConfig) Dsn() string {
	return d.dsn
}

func (d *DevOtlpConfig) ServiceName() string {
	return d.serviceName
}

func (d *DevOtlpConfig) Version() string {
	return d.version
}

func (d *DevOtlpConfig) Key() string {
	return d.key
}

var _ OtlpConfig = (*DevOtlpConfig)(nil)
