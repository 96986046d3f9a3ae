package helper

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/constants"
)

// ReadValueFromEnv will read the env var name and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	} else { // else there was no environment variable set...
		return errors.Errorf("value for environment variable %v not found", name)
	}
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" { // if the environment variable is not set and we have been given a default value...
		v = defaultValue
	}
	return
}

// EnvironToMap converts KEY=value pairs, as returned by os.Environ(), into a map.
// Later duplicates win, matching how exec treats a duplicated key.
func EnvironToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		idx := strings.Index(kv, "=")
		if idx <= 0 { // if there is no key...
			continue
		}
		m[kv[:idx]] = kv[idx+1:]
	}
	return m
}

// FlagNameToEnvVar forms an environment variable name from a CLI flag name using constants.EnvVarPrefix.
func FlagNameToEnvVar(name string) string {
	return constants.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
}
