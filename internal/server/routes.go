package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Liveness, version, and corpus status
	mux.HandleFunc("/health", s.app.StatusHandler.Health)
	mux.HandleFunc("/version", s.app.StatusHandler.Version)
	mux.HandleFunc("/status", s.app.StatusHandler.Status)

	// WebSocket event feed
	mux.HandleFunc("/ws", s.app.WebSocketHandler.Serve)

	// Scraping source registry and job control
	mux.HandleFunc("/web-scraping/sources", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, s.app.SourceHandler.List, s.app.SourceHandler.Create)
	})
	mux.HandleFunc("/web-scraping/sources/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/scrape"):
			RouteByMethod(w, r, MethodRouter{"POST": s.app.ScraperHandler.Scrape})
		case strings.HasSuffix(r.URL.Path, "/stats"):
			RouteByMethod(w, r, MethodRouter{"GET": s.app.SourceHandler.Stats})
		default:
			RouteResourceItem(w, r, nil, s.app.SourceHandler.Update, s.app.SourceHandler.Delete)
		}
	})
	mux.HandleFunc("/web-scraping/stop", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"POST": s.app.ScraperHandler.Stop})
	})
	mux.HandleFunc("/web-scraping/active-jobs", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"GET": s.app.ScraperHandler.ActiveJobs})
	})
	mux.HandleFunc("/web-scraping/jobs/", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"GET": s.app.ScraperHandler.Job})
	})
	mux.HandleFunc("/web-scraping/scraped-documents", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"GET": s.app.ScraperHandler.ScrapedDocuments})
	})

	// Document lifecycle, browsing, and comparison
	mux.HandleFunc("/documents/embed", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"POST": s.app.DocumentHandler.Embed})
	})
	mux.HandleFunc("/documents/stats", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"GET": s.app.DocumentHandler.Stats})
	})
	mux.HandleFunc("/documents/browse/metadata", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"GET": s.app.DocumentHandler.BrowseMetadata})
	})
	mux.HandleFunc("/documents/compare", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"POST": s.app.CompareHandler.Compare})
	})
	mux.HandleFunc("/documents/compare/conflicts", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"POST": s.app.CompareHandler.Conflicts})
	})
	mux.HandleFunc("/documents/compare/export", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"POST": s.app.CompareHandler.Export})
	})
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/status") {
			RouteByMethod(w, r, MethodRouter{"GET": s.app.DocumentHandler.Status})
			return
		}
		http.NotFound(w, r)
	})

	// Conversational queries
	mux.HandleFunc("/chat/query", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{"POST": s.app.ChatHandler.Query})
	})

	// External database sources
	mux.HandleFunc("/data-sources", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, s.app.DataSourceHandler.List, s.app.DataSourceHandler.Create)
	})
	mux.HandleFunc("/data-sources/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sync"):
			RouteByMethod(w, r, MethodRouter{"POST": s.app.DataSourceHandler.Sync})
		case strings.HasSuffix(r.URL.Path, "/sync-logs"):
			RouteByMethod(w, r, MethodRouter{"GET": s.app.DataSourceHandler.SyncLogs})
		default:
			RouteResourceItem(w, r, nil, s.app.DataSourceHandler.Update, s.app.DataSourceHandler.Delete)
		}
	})

	// Raw document blobs
	mux.Handle("/blobs/", http.StripPrefix("/blobs/",
		http.FileServer(http.Dir(s.app.Config.Blob.Dir))))

	return mux
}
