package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "DECOAROMAS_TEST_MODE"

var testMode struct {
	sync.Mutex
	loaded bool
	on     bool
}

// InTestMode reports whether the binaries should skip dialing Redis, the
// backend and the listener. The environment is read once and cached.
func InTestMode() bool {
	testMode.Lock()
	defer testMode.Unlock()
	if !testMode.loaded {
		testMode.on = readTestMode()
		testMode.loaded = true
	}
	return testMode.on
}

// RefreshTestMode re-reads the environment after it changed.
func RefreshTestMode() {
	testMode.Lock()
	defer testMode.Unlock()
	testMode.on = readTestMode()
	testMode.loaded = true
}

func readTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	return err == nil && on
}
