package ai

import (
	"context"
	"log/slog"
	"time"
)

// Attempt performs one remote call against the given model.
type Attempt[T any] func(ctx context.Context, model string) (T, error)

// WithFallback runs attempt against primary and, on any error, exactly once
// more against fallback. The fallback error is returned unmodified.
func WithFallback[T any](ctx context.Context, logger *slog.Logger, op, primary, fallback string, attempt Attempt[T]) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	out, err := attempt(ctx, primary)
	observeCall(op, primary, "primary", start, err)
	if err == nil {
		return out, nil
	}
	if fallback == "" {
		logger.Error("llm call failed, no fallback model configured",
			slog.String("op", op), slog.String("model", primary), slog.Any("error", err))
		return out, err
	}

	logger.Warn("llm call failed, retrying with fallback model",
		slog.String("op", op),
		slog.String("model", primary),
		slog.String("fallback_model", fallback),
		slog.Any("error", err))
	fallbackActivations.WithLabelValues(op).Inc()

	start = time.Now()
	out, err = attempt(ctx, fallback)
	observeCall(op, fallback, "fallback", start, err)
	if err != nil {
		logger.Error("llm fallback call failed",
			slog.String("op", op), slog.String("model", fallback), slog.Any("error", err))
	}
	return out, err
}
