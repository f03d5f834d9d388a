// Package services synthesizes the backing-service descriptors (databases, cache,
// broker) attached to each generated job. Descriptors are passthrough configuration for
// the CI container runtime; downstream never inspects them.
package services

import (
	"encoding/json"
	"strings"

	"github.com/rubyci/matrixgen/internal/errors"
)

// Set selects which services a job needs.
type Set int

const (
	// Core is the baseline set: both relational databases plus the cache.
	Core Set = iota

	// Extended adds the message broker and the queue on top of the core set.
	Extended
)

// ParseSet maps the config-level `services` item field to a Set. Anything other than an
// explicit extended marker selects the core set.
func ParseSet(value string) Set {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "extended", "full":
		return Extended
	default:
		return Core
	}
}

// Default images for each service.
const (
	DefaultMySQLImage     = "mysql:8.0"
	DefaultPostgresImage  = "postgres:16"
	DefaultRedisImage     = "redis:7"
	DefaultMemcachedImage = "memcached:1.6"
	DefaultRabbitMQImage  = "rabbitmq:3"
)

// HealthCheck is the readiness-probe policy for one service container.
type HealthCheck struct {
	Command  string `json:"command"`
	Interval string `json:"interval"`
	Timeout  string `json:"timeout"`
	Retries  int    `json:"retries"`
}

// Definition describes one service container.
type Definition struct {
	Image       string            `json:"image"`
	Ports       []string          `json:"ports"`
	Env         map[string]string `json:"env,omitempty"`
	HealthCheck HealthCheck       `json:"health_check"`
}

// Bundle maps service names to their definitions.
type Bundle map[string]Definition

// New builds the deterministic service bundle for the given set. A non-empty mysqlImage
// overrides the primary relational database image.
func New(set Set, mysqlImage string) Bundle {
	if mysqlImage == "" {
		mysqlImage = DefaultMySQLImage
	}

	bundle := Bundle{
		"mysql": mysqlDefinition(mysqlImage),
		"postgres": {
			Image: DefaultPostgresImage,
			Ports: []string{"5432:5432"},
			Env:   map[string]string{"POSTGRES_HOST_AUTH_METHOD": "trust"},
			HealthCheck: HealthCheck{
				Command:  "pg_isready -U postgres",
				Interval: "10s",
				Timeout:  "5s",
				Retries:  5,
			},
		},
		"redis": {
			Image: DefaultRedisImage,
			Ports: []string{"6379:6379"},
			HealthCheck: HealthCheck{
				Command:  "redis-cli ping",
				Interval: "10s",
				Timeout:  "5s",
				Retries:  5,
			},
		},
	}

	if set == Extended {
		bundle["memcached"] = Definition{
			Image: DefaultMemcachedImage,
			Ports: []string{"11211:11211"},
			HealthCheck: HealthCheck{
				Command:  "nc -z 127.0.0.1 11211",
				Interval: "10s",
				Timeout:  "5s",
				Retries:  5,
			},
		}
		bundle["rabbitmq"] = Definition{
			Image: DefaultRabbitMQImage,
			Ports: []string{"5672:5672"},
			HealthCheck: HealthCheck{
				Command:  "rabbitmq-diagnostics -q ping",
				Interval: "10s",
				Timeout:  "5s",
				Retries:  10,
			},
		}
	}

	return bundle
}

// mysqlDefinition picks the readiness probe by image family: the mariadb fork ships its
// own healthcheck script, everything else answers mysqladmin.
func mysqlDefinition(image string) Definition {
	check := HealthCheck{
		Command:  "mysqladmin ping -h 127.0.0.1 --silent",
		Interval: "10s",
		Timeout:  "5s",
		Retries:  10,
	}

	if strings.Contains(image, "mariadb") {
		check.Command = "healthcheck.sh --connect --innodb_initialized"
	}

	return Definition{
		Image:       image,
		Ports:       []string{"3306:3306"},
		Env:         map[string]string{"MYSQL_ALLOW_EMPTY_PASSWORD": "yes"},
		HealthCheck: check,
	}
}

// JSON serializes the bundle to the single opaque blob embedded in each job. Map keys
// marshal sorted, so equal bundles always serialize identically.
func (bundle Bundle) JSON() (string, error) {
	data, err := json.Marshal(bundle)
	if err != nil {
		return "", errors.WithStackTrace(err)
	}

	return string(data), nil
}
