package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPostgresNotConfigured means none of the POSTGRES_* variables are set
var ErrPostgresNotConfigured = errors.New("postgres not configured")

// PostgresConfig holds configuration for the PostgreSQL results database
type PostgresConfig struct {
	User     string
	Password string
	Database string
	Host     string
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables.
// The variables are all-or-none: none set yields ErrPostgresNotConfigured, a
// partial set is an error naming what is missing.
func LoadPostgresConfig(getenv func(string) string) (*PostgresConfig, error) {
	config := &PostgresConfig{
		User:     getenv("POSTGRES_USER"),
		Password: getenv("POSTGRES_PASSWORD"),
		Database: getenv("POSTGRES_DB"),
		Host:     getenv("POSTGRES_HOSTNAME"),
	}

	fields := []struct{ name, value string }{
		{"POSTGRES_USER", config.User},
		{"POSTGRES_PASSWORD", config.Password},
		{"POSTGRES_DB", config.Database},
		{"POSTGRES_HOSTNAME", config.Host},
	}
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}

	switch len(missing) {
	case 0:
		return config, nil
	case len(fields):
		return nil, ErrPostgresNotConfigured
	default:
		return nil, fmt.Errorf("%s is required", strings.Join(missing, ", "))
	}
}

// ConnectionString returns a PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.User, c.Password, c.Database)
}
