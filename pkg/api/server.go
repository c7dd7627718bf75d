package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidgate/yt-api/pkg/dispatch"
	"github.com/vidgate/yt-api/pkg/gateway"
	"github.com/vidgate/yt-api/pkg/models"
	"github.com/vidgate/yt-api/pkg/pipeline"
	"github.com/vidgate/yt-api/pkg/utils"
)

type Server struct {
	Port            int
	Service         *gateway.Service
	mu              sync.Mutex
	activeDownloads map[string]int
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/files/{name}", s.handleFileDownload)

	// Authorization runs before rate limiting so unauthorized traffic does
	// not consume a client's rate budget.
	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Use(s.rateLimit)

		r.Get("/search", s.handleSearch)
		r.Get("/details", s.handleDetails)
		r.Get("/formats", s.handleFormats)
		r.Get("/playlist", s.handlePlaylist)
		r.Get("/stream", s.handleStream)
		r.Get("/download", s.handleDownload)
	})

	return r
}

func (s *Server) Start() error {
	if s.activeDownloads == nil {
		s.activeDownloads = make(map[string]int)
	}

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("Starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.Port))
	return http.ListenAndServe(addr, s.router())
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	if s.activeDownloads == nil {
		s.activeDownloads = make(map[string]int)
	}
	return s.router()
}

// clientKey is the rate-limit identity: the remote host without its port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("api_key")
		if !s.Service.Keyring.Authorize(key) {
			slog.Warn("Rejected request with invalid API key", "path", r.URL.Path, "remote", r.RemoteAddr)
			s.writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Service.Limiter.Admit(clientKey(r)) {
			s.writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, models.StatusResponse{Status: "running", App: "YouTube API"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := s.Service.Resolver.Search(r.Context(), query)
	if err != nil {
		s.writeBackendError(w, "search", err)
		return
	}
	if results == nil {
		results = []models.VideoSummary{}
	}
	s.respondJSON(w, results)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		s.writeError(w, http.StatusBadRequest, "link is required")
		return
	}

	summary, err := s.Service.Resolver.Details(r.Context(), link)
	if err != nil {
		s.writeBackendError(w, "details", err)
		return
	}
	// Zero results is not a fault: the body is a JSON null.
	s.respondJSON(w, summary)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		s.writeError(w, http.StatusBadRequest, "link is required")
		return
	}

	formats, err := s.Service.Resolver.ListFormats(r.Context(), link)
	if err != nil {
		s.writeBackendError(w, "formats", err)
		return
	}
	if formats == nil {
		formats = []models.FormatDescriptor{}
	}
	s.respondJSON(w, formats)
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID := utils.ExtractPlaylistID(r.URL.Query().Get("playlist_id"))
	if playlistID == "" {
		s.writeError(w, http.StatusBadRequest, "playlist_id is required")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	ids, err := s.Service.Resolver.Playlist(r.Context(), playlistID, limit)
	if err != nil {
		s.writeBackendError(w, "playlist", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.respondJSON(w, ids)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	wantVideo := boolParam(r, "video")

	streamURL, err := s.Service.Resolver.ResolveStreamURL(r.Context(), query, wantVideo)
	if err != nil {
		s.writeBackendError(w, "stream", err)
		return
	}

	resp := models.StreamResponse{}
	if streamURL != "" {
		resp.StreamURL = &streamURL
	}
	s.respondJSON(w, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	link := q.Get("link")
	if link == "" {
		s.writeError(w, http.StatusBadRequest, "link is required")
		return
	}

	job := s.Service.NewJob(link, q.Get("format_id"), q.Get("title"), boolParam(r, "audio"), boolParam(r, "video"))
	slog.Info("Download requested", "job", job.ID, "link", link, "remote", r.RemoteAddr)

	path, err := s.Service.Pipeline.Execute(r.Context(), job)
	if err != nil {
		var de *pipeline.DownloadError
		if errors.As(err, &de) {
			slog.Error("Download job failed", "job", job.ID, "stage", de.Stage, "err", de.Err)
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("download %s", de.Error()))
			return
		}
		s.writeBackendError(w, "download", err)
		return
	}

	s.respondJSON(w, models.DownloadResponse{FilePath: path})
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "name")
	if filename == "" || strings.Contains(filename, "..") || strings.ContainsAny(filename, "/\\") {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	path := filepath.Join(s.Service.OutputDir, filename)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		http.Error(w, "File not found or expired", http.StatusNotFound)
		return
	}

	s.trackFileStart(filename)
	defer s.trackFileEnd(filename)

	file, err := os.Open(path)
	if err != nil {
		http.Error(w, "File access error", http.StatusInternalServerError)
		return
	}
	defer func(file *os.File) {
		if cerr := file.Close(); cerr != nil {
			slog.Error("Error closing file", "err", cerr)
		}
	}(file)

	slog.Info("Serving file", "file", filename, "remote", r.RemoteAddr)

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, time.Now(), file)
}

// BackgroundCleaner removes downloads idle longer than the TTL. Files being
// served right now are skipped.
func (s *Server) BackgroundCleaner(ttl time.Duration) {
	ticker := time.NewTicker(1 * time.Minute)
	for range ticker.C {
		files, err := os.ReadDir(s.Service.OutputDir)
		if err != nil {
			slog.Error("Cleaner cant read dir", "err", err)
			continue
		}

		for _, f := range files {
			name := f.Name()

			if strings.Contains(name, "_tmp") || strings.HasSuffix(name, ".part") {
				continue
			}

			if s.isFileBusy(name) {
				slog.Debug("Skipping busy file", "file", name)
				continue
			}

			info, ierr := f.Info()
			if ierr != nil {
				continue
			}
			if time.Since(info.ModTime()) > ttl {
				fullPath := filepath.Join(s.Service.OutputDir, name)
				if rerr := os.Remove(fullPath); rerr != nil {
					slog.Error("Failed to remove file", "err", rerr)
				} else {
					slog.Debug("Cleaned up old file", "file", name)
				}
			}
		}
	}
}

func (s *Server) trackFileStart(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDownloads[filename]++
}

func (s *Server) trackFileEnd(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDownloads[filename]--
	if s.activeDownloads[filename] <= 0 {
		delete(s.activeDownloads, filename)
	}
}

func (s *Server) isFileBusy(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeDownloads[filename] > 0
}

// writeBackendError maps the extraction error taxonomy onto 5xx codes. A
// timeout and an upstream fault stay distinguishable from "no results",
// which is always a 200.
func (s *Server) writeBackendError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, dispatch.ErrTimeout) {
		slog.Error("Backend timed out", "op", op)
		s.writeError(w, http.StatusGatewayTimeout, op+" timed out")
		return
	}
	slog.Error("Backend call failed", "op", op, "err", err)
	s.writeError(w, http.StatusBadGateway, op+" failed: backend error")
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if jerr := json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg}); jerr != nil {
		slog.Error("JSON encoding failed", "error", jerr)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if jerr := json.NewEncoder(w).Encode(data); jerr != nil {
		slog.Error("JSON encoding failed", "error", jerr)
	}
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
