package memory

import (
	"io"

	"golang.org/x/exp/slog"
)

// discardLogger is the default logger attached to every resource so the
// allocate/deallocate hot path never has to nil-check a *slog.Logger.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard))
