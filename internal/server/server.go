package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-ledger/internal/logging"
)

type Server struct {
	httpServer *http.Server
}

func NewRouter(service ParkingService, serviceName string) http.Handler {
	handler := NewHandler(service, serviceName)
	return newRouter(handler, serviceName)
}

func newRouter(handler *Handler, serviceName string) http.Handler {
	registry := NewRegistry(handler.service)

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	r.Route("/api", func(r chi.Router) {
		r.Use(TracingMiddleware(serviceName))

		r.Post("/lots", handler.CreateLots)
		r.Get("/lots/status", handler.GetStatus)

		r.Post("/vehicles/park", handler.ParkVehicle)
		r.Post("/vehicles/remove", handler.RemoveVehicle)
		r.Get("/vehicles/{plate}", handler.FindVehicle)

		r.Get("/rates", handler.GetRates)
		r.Put("/rates", handler.UpdateRates)

		r.Get("/history", handler.GetHistory)
		r.Delete("/history", handler.ClearHistory)
		r.Post("/history/{id}/pay", handler.MarkPaid)
		r.Delete("/history/{id}", handler.DeleteHistoryEntry)

		r.Get("/revenue", handler.GetRevenue)
		r.Get("/state", handler.GetState)
	})

	return r
}

func NewServer(port string, service ParkingService, serviceName string) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(service, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: httpServer}
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
