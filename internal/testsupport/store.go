package testsupport

import (
	"testing"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/config"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/ledger"
)

// MustOpenStore opens a ledger store under the test config's data
// directory and closes it when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
