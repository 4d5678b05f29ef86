// Package testing switches binaries into test mode. Blank-import it from tests
// that touch app.InTestMode or the cmd entry points.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("STEWARD_TEST_MODE", "1")
		if os.Getenv("SESSION_KEY_PREFIX") == "" {
			_ = os.Setenv("SESSION_KEY_PREFIX", "steward-test:")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
