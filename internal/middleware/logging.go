package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/metrics"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// and records it in the RPC metrics. It logs the procedure name, user ID,
// duration, and any error codes/messages.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx) // empty if pre-auth

			resp, err := next(ctx, req)

			elapsed := time.Since(start)
			duration := elapsed.Milliseconds()
			metrics.RPCDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())

			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					metrics.RPCRequests.WithLabelValues(procedure, connectErr.Code().String()).Inc()
					slog.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"user_id", userID,
						"duration_ms", duration,
					)
				} else {
					metrics.RPCRequests.WithLabelValues(procedure, connect.CodeUnknown.String()).Inc()
					slog.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"user_id", userID,
						"duration_ms", duration,
					)
				}
			} else {
				metrics.RPCRequests.WithLabelValues(procedure, "ok").Inc()
				slog.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
			}

			return resp, err
		}
	}
}
