// Package config provides the environment-backed configuration loader used
// by the yardgate bootstrap (cmd/yardgate/main.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/trailerops/yardgate/internal/yards"
)

// Config holds the runtime config values used by main.go.
type Config struct {
	DatabaseURL string // DATABASE_URL
	ListenAddr  string // LISTEN_ADDR (default :8080)
	JWTSecret   string // JWT_SECRET (empty disables auth, dev only)

	S3Bucket   string // S3_BUCKET
	S3Endpoint string // S3_ENDPOINT (optional override for minio etc.)

	KafkaBrokers []string // KAFKA_BROKERS (comma-separated; empty disables events)
	KafkaTopic   string   // KAFKA_TOPIC (default yard.movements)

	Timezone string // YARD_TIMEZONE (default America/Edmonton)
	YardSpec string // YARDS: id:name:capacity[,id:name:capacity...]

	RunMigrations bool // RUN_MIGRATIONS (default true)
}

// LoadFromEnv reads config values from environment variables.
func LoadFromEnv() *Config {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		KafkaTopic:  os.Getenv("KAFKA_TOPIC"),
		Timezone:    os.Getenv("YARD_TIMEZONE"),
		YardSpec:    os.Getenv("YARDS"),

		RunMigrations: true,
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "yard.movements"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Edmonton"
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RunMigrations = b
		}
	}

	return cfg
}

// ParseYards turns the YARDS spec string into yard definitions. Each entry is
// id:name:capacity. An empty spec yields a single default yard for dev runs.
func ParseYards(spec string) ([]yards.Yard, error) {
	if strings.TrimSpace(spec) == "" {
		return []yards.Yard{{ID: "MAIN", Name: "Main Yard", Capacity: 50}}, nil
	}
	var out []yards.Yard
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("config: bad yard entry %q (want id:name:capacity)", entry)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("config: bad capacity in yard entry %q: %w", entry, err)
		}
		out = append(out, yards.Yard{
			ID:       strings.TrimSpace(parts[0]),
			Name:     strings.TrimSpace(parts[1]),
			Capacity: capacity,
		})
	}
	return out, nil
}
