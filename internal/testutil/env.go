package testutil

import (
	"os"
	"testing"
)

// WithEnv sets an environment variable for the duration of a test and
// returns a func restoring the previous value (or unsetting it if the
// variable was absent). An empty val unsets the variable.
func WithEnv(t *testing.T, key, val string) func() {
	t.Helper()
	old, had := os.LookupEnv(key)
	if val == "" {
		_ = os.Unsetenv(key)
	} else {
		_ = os.Setenv(key, val)
	}
	return func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	}
}
