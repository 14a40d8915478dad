// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads the completion API credential at startup. The key is
// read from the process environment first, then from a local .env file, and
// is treated as immutable read-only configuration for the rest of the run.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/subosito/gotenv"
)

// EnvAPIKey is the environment variable holding the completion API key.
const EnvAPIKey = "OPENAI_API_KEY"

// DefaultEnvFile is the .env file consulted when the variable is not set.
const DefaultEnvFile = ".env"

// LoadAPIKey returns the API key from the environment or from the .env file
// at envFile. A missing .env file is not an error; an empty result means no
// credential is configured anywhere.
func LoadAPIKey(envFile string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		return v, nil
	}

	env, err := gotenv.Read(envFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", envFile, err)
	}

	return strings.TrimSpace(env[EnvAPIKey]), nil
}

// Require wraps LoadAPIKey and converts an absent credential into a clear
// fatal error, so the failure surfaces before any subprocess or network call.
func Require(envFile string) (string, error) {
	key, err := LoadAPIKey(envFile)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf(
			"no API credential: set %s in the environment or in %s",
			EnvAPIKey, envFile,
		)
	}
	return key, nil
}
