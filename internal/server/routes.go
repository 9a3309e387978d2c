package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route: all-runs event feed for dashboards
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Runs
	mux.HandleFunc("/api/runs", s.handleRunsRoute) // GET (list), POST (create)
	mux.HandleFunc("/api/runs/", s.handleRunRoutes) // subresources of /api/runs/{id}

	// API routes - Leads
	mux.HandleFunc("/api/leads/search", s.app.LeadsHandler.SearchLeadsHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleRunsRoute routes /api/runs requests (list and create)
func (s *Server) handleRunsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.RunHandler.ListRunsHandler(w, r)
	case "POST":
		s.app.RunHandler.CreateRunHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunRoutes routes /api/runs/{id} and its subresources
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/cancel"):
		s.app.RunHandler.CancelRunHandler(w, r)

	case strings.HasSuffix(path, "/leads"):
		s.app.RunHandler.GetLeadsHandler(w, r)

	case strings.HasSuffix(path, "/events"):
		s.app.EventStreamHandler.StreamEventsHandler(w, r)

	case strings.HasSuffix(path, "/export"):
		s.app.RunHandler.ExportRunHandler(w, r)

	default:
		// /api/runs/{id}
		switch r.Method {
		case "GET":
			s.app.RunHandler.GetRunHandler(w, r)
		case "DELETE":
			s.app.RunHandler.DeleteRunHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
