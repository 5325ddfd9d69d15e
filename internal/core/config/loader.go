package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/routefleet/internal/infra/loader"
	"github.com/vietddude/routefleet/internal/infra/registry"
)

// Load reads configuration from a YAML file and validates every section.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// LoadRegistry reads configuration for commands that only touch the
// registry: routes and loader sections are not validated.
func LoadRegistry(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseRegistry(data)
}

// Parse decodes YAML content, applies defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ParseRegistry is Parse limited to the registry, database and redis sections.
func ParseRegistry(data []byte) (*AppConfig, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateRegistry(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func decode(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Registry.Backend == "" {
		c.Registry.Backend = registry.BackendStatic
	}
	if c.Redis.Key == "" {
		c.Redis.Key = registry.DefaultRedisKey
	}
	if c.Loader.Kind == "" {
		c.Loader.Kind = LoaderHTTP
	}
	if c.Loader.Timeout == 0 {
		c.Loader.Timeout = 10 * time.Second
	}
	if c.Loader.HTTP.ProxyMode == "" {
		c.Loader.HTTP.ProxyMode = loader.ProxyModePrefix
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations a run cannot start with.
func (c *AppConfig) Validate() error {
	routes, err := c.RouteSet()
	if err != nil {
		return err
	}

	if err := c.RoutingOverrides().Validate(routes); err != nil {
		return err
	}

	if c.Fleet.MaxConcurrency < 0 {
		return fmt.Errorf("fleet.max_concurrency must be >= 0, got %d", c.Fleet.MaxConcurrency)
	}

	if err := c.ValidateRegistry(); err != nil {
		return err
	}

	switch c.Loader.Kind {
	case LoaderHTTP:
		if c.Loader.HTTP.URLTemplate == "" {
			return errors.New("loader.http.url_template is required")
		}
	case LoaderGRPC:
		if c.Loader.GRPC.TargetTemplate == "" {
			return errors.New("loader.grpc.target_template is required")
		}
	default:
		return fmt.Errorf("unknown loader kind %q", c.Loader.Kind)
	}

	return nil
}

// ValidateRegistry checks the sections needed to reach the source registry.
func (c *AppConfig) ValidateRegistry() error {
	switch c.Registry.Backend {
	case registry.BackendStatic:
		seen := make(map[string]struct{}, len(c.Registry.Sources))
		for _, id := range c.Registry.Sources {
			if id == "" {
				return errors.New("registry.sources contains an empty id")
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("registry.sources lists %q twice", id)
			}
			seen[id] = struct{}{}
		}
	case registry.BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres registry")
		}
	case registry.BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis registry")
		}
	default:
		return fmt.Errorf("unknown registry backend %q", c.Registry.Backend)
	}

	return nil
}
