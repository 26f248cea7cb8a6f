package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env looks up a variable. An empty result means absent.
type Env func(key string) string

// LoadEnv returns an Env backed by the process environment with the given
// dotenv files as fallback. Missing files are skipped. The files are read,
// not exported: the process environment is left untouched.
func LoadEnv(files ...string) (Env, error) {
	dotenv := make(map[string]string)

	for _, file := range files {
		if file == "" {
			continue
		}

		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}

		for k, v := range values {
			if _, exists := dotenv[k]; !exists {
				dotenv[k] = v
			}
		}
	}

	return func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}

		return strings.TrimSpace(dotenv[key])
	}, nil
}

// MapEnv returns an Env backed by a fixed map.
func MapEnv(values map[string]string) Env {
	return func(key string) string {
		return strings.TrimSpace(values[key])
	}
}

// or returns env[key] if the key is named and the value present, otherwise fallback.
func (e Env) or(key, fallback string) string {
	if key == "" || e == nil {
		return fallback
	}

	if v := e(key); v != "" {
		return v
	}

	return fallback
}
