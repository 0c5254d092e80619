package testsupport

import (
	"testing"

	"bindery/internal/config"
	"bindery/internal/metrics"
)

// MustOpenStore opens a metrics store for the given config and registers
// cleanup with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *metrics.Store {
	t.Helper()
	store, err := metrics.Open(cfg)
	if err != nil {
		t.Fatalf("open metrics store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close metrics store: %v", err)
		}
	})
	return store
}
