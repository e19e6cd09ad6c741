// Package testing switches the binaries into test mode when blank-imported by a test.
package testing

import (
	"io"
	"log/slog"
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var defaults = map[string]string{
	"DECOAROMAS_TEST_MODE": "1",
	"BACKEND_URL":          "http://127.0.0.1:0",
	"LOG_LEVEL":            "error",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range defaults {
			if key == "DECOAROMAS_TEST_MODE" || os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from packages that declare their own.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
