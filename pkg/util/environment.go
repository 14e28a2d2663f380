package util

import (
	"os"
	"strings"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		key, value, _ := strings.Cut(variable, "=")

		environmentVariables[key] = value
	}

	return environmentVariables
}

// GetEnvironmentVariable returns fallback when the variable is unset or empty
func GetEnvironmentVariable(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
