package builder

import (
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/assets"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/conditions"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/config"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/ledger"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/library"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/logging"
	"github.com/CollinHeist/TitleCardMaker-sub003/internal/render"
)

// Coordinator plans and executes card builds against a library snapshot.
type Coordinator struct {
	cfg       *config.Config
	lib       *library.Library
	store     *ledger.Store
	locator   *assets.Locator
	client    render.Client
	evaluator *conditions.Evaluator
	logger    *slog.Logger

	// flight collapses concurrent builds of the same episode into one
	// renderer invocation.
	flight singleflight.Group
}

// New constructs a coordinator. The library is treated as a read-only
// snapshot taken before dispatch: edits made externally mid-run are not
// observed until the next run.
func New(cfg *config.Config, lib *library.Library, store *ledger.Store, client render.Client, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		lib:       lib,
		store:     store,
		locator:   assets.NewLocator(cfg),
		client:    client,
		evaluator: conditions.NewEvaluator(logger),
		logger:    logging.NewComponentLogger(logger, "builder"),
	}
}
