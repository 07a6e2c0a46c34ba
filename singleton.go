package unifi

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// global holds the process-wide client installed by Initialize. Most
// programs talk to one controller; the singleton saves threading a client
// through every call site. Programs talking to several controllers should
// construct clients with New and skip this surface entirely.
var global struct {
	mu     sync.Mutex
	client *UniFiClient
}

// Initialize installs client as the process-wide instance. Construction
// stays with New, so a caller can configure, instrument, or warm up the
// client before installing it. Initialize may be called at most once; a
// second call returns ErrAlreadyInitialized and leaves the existing
// instance in place.
func Initialize(client *UniFiClient) error {
	if client == nil {
		return configErrorf("client is required")
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.client != nil {
		return errors.WithStack(ErrAlreadyInitialized)
	}
	global.client = client
	return nil
}

// Instance returns the process-wide client installed by Initialize, or
// ErrNotInitialized if Initialize has not run.
func Instance() (*UniFiClient, error) {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.client == nil {
		return nil, errors.WithStack(ErrNotInitialized)
	}
	return global.client, nil
}

// resetGlobal clears the process-wide instance. Tests only.
func resetGlobal() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.client = nil
}
