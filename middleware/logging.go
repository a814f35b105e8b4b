// Package middleware provides reusable fetch hooks.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/broady/openfetch"
)

// Logging returns hooks that log fetch calls using slog.
// It logs the start and end of each call, including duration and error status.
// Register the result on a hook bus or pass it per call:
//
//	reg.Hooks().Register(middleware.Logging(logger))
func Logging(logger *slog.Logger) openfetch.Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	elapsed := func(fc *openfetch.FetchContext) time.Duration {
		if fc.Started.IsZero() {
			return 0
		}
		return time.Since(fc.Started)
	}
	attrs := func(fc *openfetch.FetchContext) []any {
		return []any{
			slog.String("client", fc.Client),
			slog.String("method", fc.Request.Method),
			slog.String("url", fc.Request.URL.String()),
		}
	}

	onRequest := func(ctx context.Context, fc *openfetch.FetchContext) error {
		logger.InfoContext(ctx, "fetch started", attrs(fc)...)
		return nil
	}
	onResponse := func(ctx context.Context, fc *openfetch.FetchContext) error {
		if !fc.Response.OK() {
			// onResponseError logs it.
			return nil
		}
		logger.InfoContext(ctx, "fetch completed", append(attrs(fc),
			slog.Int("status", fc.Response.Status),
			slog.Duration("duration", elapsed(fc)))...)
		return nil
	}
	onError := func(ctx context.Context, fc *openfetch.FetchContext) error {
		args := append(attrs(fc),
			slog.Duration("duration", elapsed(fc)),
			slog.Any("error", fc.Error))
		if fc.Response != nil {
			args = append(args, slog.Int("status", fc.Response.Status))
		}
		logger.ErrorContext(ctx, "fetch failed", args...)
		return nil
	}

	return openfetch.Hooks{
		OnRequest:       []openfetch.Hook{onRequest},
		OnRequestError:  []openfetch.Hook{onError},
		OnResponse:      []openfetch.Hook{onResponse},
		OnResponseError: []openfetch.Hook{onError},
	}
}
