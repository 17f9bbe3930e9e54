package main

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// newRouter mounts the Connect service next to the operational endpoints.
// Interceptors run in the order given, the first one outermost.
func newRouter(svc *service.LedgerService, origins []string, interceptors ...connect.Interceptor) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Authorization", "Content-Type",
			"Connect-Protocol-Version", "Connect-Timeout-Ms",
		},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
	}))

	path, handler := apiconnect.NewLedgerServiceHandler(svc, connect.WithInterceptors(interceptors...))
	r.Mount(path, handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}
