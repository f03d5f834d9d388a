// Package env contains helpers for reading process environment variables.
package env

import (
	"os"
	"strings"
)

// GetStringEnv returns an environment variable by the given key, or returns the given fallback value if the env variable is not present.
func GetStringEnv(key string, fallback string) string {
	if val, ok := LookupEnv(key); ok {
		return val
	}

	return fallback
}

// GetListEnv returns the environment value split into a list on commas and whitespace,
// or the given fallback list if the variable with the given key is not present.
func GetListEnv(key string, fallback []string) []string {
	strVal, ok := LookupEnv(key)
	if !ok {
		return fallback
	}

	return SplitList(strVal)
}

// LookupEnv behaves the same as `os.LookupEnv`, but additionally trims spaces in the value.
func LookupEnv(key string) (string, bool) {
	if key == "" {
		return "", false
	}

	val, ok := os.LookupEnv(key)
	val = strings.TrimSpace(val)

	isPresent := ok && val != ""

	return val, isPresent
}

// SplitList splits the given value on commas and any run of whitespace, dropping empty entries.
func SplitList(val string) []string {
	var out []string

	for _, field := range strings.FieldsFunc(val, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}) {
		if field != "" {
			out = append(out, field)
		}
	}

	return out
}
