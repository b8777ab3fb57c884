package logging

import (
	"context"
	"log/slog"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for batch run correlation identifiers.
	FieldRunID = "run_id"
	// FieldSeries is the standardized structured logging key for series identifiers.
	FieldSeries = "series"
	// FieldEpisode is the standardized structured logging key for episode identifiers (e.g. s01e02).
	FieldEpisode = "episode"
	// FieldStage is the standardized structured logging key for engine stage names.
	FieldStage = "stage"
	// FieldFingerprint is the standardized structured logging key for card fingerprints.
	FieldFingerprint = "fingerprint"
	// FieldOutcome is the standardized structured logging key for build outcomes.
	FieldOutcome = "outcome"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.SeriesFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSeries, id))
	}
	if id, ok := services.EpisodeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEpisode, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
