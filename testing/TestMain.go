// Package testing primes the environment for packages that import it in
// their tests: test mode on and placeholder values for required settings.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var testEnv = map[string]string{
	"LOANDESK_TEST_MODE": "1",
	"CSRF_SECRET":        "test-csrf",
	"LISTING_URL":        "http://127.0.0.1:0/leads",
}

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testEnv {
			if key == "LOANDESK_TEST_MODE" || os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
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
