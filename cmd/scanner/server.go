package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"discover-scanner/internal/feed"
	"discover-scanner/internal/observability"
	"discover-scanner/internal/pipeline"
)

type stateResponse struct {
	Session  string         `json:"session"`
	Endpoint string         `json:"endpoint"`
	State    string         `json:"state"`
	Attempts int            `json:"attempts"`
	Stats    pipeline.Stats `json:"stats"`
}

func newStatusServer(addr string, manager *feed.Manager, scanner *pipeline.Scanner) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           statusRouter(manager, scanner),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func statusRouter(manager *feed.Manager, scanner *pipeline.Scanner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", observability.Handler())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if manager.State() == feed.StateClosed {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("closed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stateResponse{
			Session:  manager.ID(),
			Endpoint: manager.Endpoint(),
			State:    manager.State().String(),
			Attempts: manager.Attempts(),
			Stats:    scanner.Stats(),
		})
	})

	return r
}
