package testutil

import (
	"testing"

	"hardcpy/internal/database"
	"hardcpy/internal/hc"
)

// NewTestCatalog creates an in-memory SQLite catalog with migrations applied.
// The catalog is closed when the test completes.
func NewTestCatalog(t *testing.T) hc.Catalog {
	t.Helper()

	cat, err := database.NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() {
		cat.Close()
	})
	return cat
}
