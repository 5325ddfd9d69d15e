package config

import (
	"time"

	"github.com/vietddude/routefleet/internal/core/domain"
	"github.com/vietddude/routefleet/internal/infra/loader"
	"github.com/vietddude/routefleet/internal/infra/registry"
	"github.com/vietddude/routefleet/internal/routing"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig            `yaml:"server"`
	Logging   LoggingConfig           `yaml:"logging"`
	Routes    []string                `yaml:"routes"`
	Overrides OverridesConfig         `yaml:"overrides"`
	Fleet     FleetConfig             `yaml:"fleet"`
	Registry  RegistryConfig          `yaml:"registry"`
	Database  registry.PostgresConfig `yaml:"database"`
	Redis     registry.RedisConfig    `yaml:"redis"`
	Loader    LoaderConfig            `yaml:"loader"`
}

// ServerConfig holds telemetry HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// OverridesConfig holds per-source exceptions to the default route walk.
type OverridesConfig struct {
	StartRoute  map[string]int `yaml:"start_route"`  // source id -> route index
	MaxAttempts map[string]int `yaml:"max_attempts"` // source id -> attempt budget
}

// FleetConfig holds fan-out settings.
type FleetConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"` // 0 = one goroutine per source
}

// RegistryConfig selects where source ids come from.
type RegistryConfig struct {
	Backend string   `yaml:"backend"` // static, postgres, redis
	Sources []string `yaml:"sources"` // static backend only
}

// LoaderConfig selects and configures the source loader.
type LoaderConfig struct {
	Kind    string            `yaml:"kind"` // http, grpc
	Timeout time.Duration     `yaml:"timeout"`
	HTTP    loader.HTTPConfig `yaml:"http"`
	GRPC    loader.GRPCConfig `yaml:"grpc"`
}

// Loader kinds.
const (
	LoaderHTTP = "http"
	LoaderGRPC = "grpc"
)

// RouteSet builds the immutable route set.
func (c *AppConfig) RouteSet() (domain.RouteSet, error) {
	return domain.NewRouteSet(c.Routes)
}

// RoutingOverrides converts the override tables to routing form.
func (c *AppConfig) RoutingOverrides() routing.Overrides {
	o := routing.Overrides{
		StartRoute:  make(map[domain.SourceID]int, len(c.Overrides.StartRoute)),
		MaxAttempts: make(map[domain.SourceID]int, len(c.Overrides.MaxAttempts)),
	}
	for id, idx := range c.Overrides.StartRoute {
		o.StartRoute[domain.SourceID(id)] = idx
	}
	for id, n := range c.Overrides.MaxAttempts {
		o.MaxAttempts[domain.SourceID(id)] = n
	}
	return o
}
