// Package http exposes the service over HTTP: the OpenPhone webhook, the
// lead form endpoint, storm-history lookups, health probes, and Prometheus
// metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridgelineexteriors/lead-intake/internal/leads"
	"github.com/ridgelineexteriors/lead-intake/internal/stormrisk"
)

// Server hosts the HTTP API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the router and wraps it in an http.Server listening on
// addr. webhookHandler is mounted as-is; leadSvc and stormSvc back the JSON
// API endpoints.
func NewServer(addr string, webhookHandler http.Handler, leadSvc *leads.Service, stormSvc *stormrisk.Service, logger *slog.Logger) *Server {
	s := &Server{
		logger: logger.With(slog.String("component", "http_server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Post("/webhooks/openphone", webhookHandler.ServeHTTP)
	router.Post("/api/leads", s.handleLeadSubmit(leadSvc))
	router.Get("/api/storm-history", s.handleStormHistory(stormSvc))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP dispatches to the router, which makes Server usable directly in
// tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLeadSubmit(svc *leads.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var lead leads.Lead
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&lead); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "Invalid payload")
			return
		}

		submitted, err := svc.Submit(r.Context(), lead)
		if err != nil {
			if errors.Is(err, leads.ErrInvalidLead) {
				s.writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Error("lead submission failed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err),
			)
			s.writeError(w, r, http.StatusInternalServerError, "Lead submission failed")
			return
		}
		s.writeJSON(w, http.StatusCreated, submitted)
	}
}

type stormHistoryResponse struct {
	stormrisk.Assessment
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) handleStormHistory(svc *stormrisk.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if address := query.Get("address"); address != "" {
			assessment, place, err := svc.AssessAddress(r.Context(), address)
			switch {
			case errors.Is(err, stormrisk.ErrNoGeocoder):
				s.writeError(w, r, http.StatusNotImplemented, "Address lookups are not enabled")
			case errors.Is(err, stormrisk.ErrAddressNotFound):
				s.writeError(w, r, http.StatusNotFound, "Address not found")
			case err != nil:
				s.logger.Error("storm history lookup failed",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Any("error", err),
				)
				s.writeError(w, r, http.StatusInternalServerError, "Storm history lookup failed")
			default:
				s.writeJSON(w, http.StatusOK, stormHistoryResponse{
					Assessment: assessment,
					Address:    place.FormattedAddress,
					Latitude:   place.Lat,
					Longitude:  place.Lon,
				})
			}
			return
		}

		lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
		lon, lonErr := strconv.ParseFloat(query.Get("lon"), 64)
		if latErr != nil || lonErr != nil {
			s.writeError(w, r, http.StatusBadRequest, "Provide lat and lon, or address")
			return
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			s.writeError(w, r, http.StatusBadRequest, "Coordinates out of range")
			return
		}

		assessment, err := svc.AssessCoordinate(r.Context(), lat, lon)
		if err != nil {
			s.logger.Error("storm history lookup failed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err),
			)
			s.writeError(w, r, http.StatusInternalServerError, "Storm history lookup failed")
			return
		}
		s.writeJSON(w, http.StatusOK, stormHistoryResponse{
			Assessment: assessment,
			Latitude:   lat,
			Longitude:  lon,
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
