package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"roostercal/internal/config"
	"roostercal/internal/convert"
	appLog "roostercal/internal/log"
	"roostercal/internal/pdftext"
	"roostercal/internal/roster"
)

// User-facing messages, kept in the language of the rosters.
const (
	msgNoFile       = "Geen bestand geüpload"
	msgEmptyName    = "Geen bestand geselecteerd"
	msgNoShifts     = "Geen diensten gevonden in dit PDF-bestand"
	msgUnreadable   = "Kon het bestand niet lezen"
	msgTooLarge     = "Bestand is te groot"
	downloadName    = "rooster.ics"
	uploadFieldName = "file"
)

// Converter is what the HTTP layer needs from the conversion pipeline.
type Converter interface {
	Convert(ctx context.Context, data []byte, filename string) (convert.Result, error)
}

// Server provides the upload UI and conversion endpoints.
type Server struct {
	cfg  *config.Config
	conv Converter
	mux  *http.ServeMux
}

// embeddedStatic contains the upload page.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, conv Converter) *Server {
	s := &Server{
		cfg:  cfg,
		conv: conv,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="roostercal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/upload", s.handleUpload)
	s.mux.HandleFunc("/api/extract", s.handleExtract)
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded upload page.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		// /api/* never falls back to the UI.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// readUpload pulls the roster file out of a multipart request. On failure
// it has already written the response.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, "", false
	}

	limit := s.cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return nil, "", false
		}
		writeText(w, http.StatusBadRequest, msgNoFile)
		return nil, "", false
	}
	defer file.Close()

	if header.Filename == "" {
		writeText(w, http.StatusBadRequest, msgEmptyName)
		return nil, "", false
	}
	if header.Size > limit {
		writeText(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return nil, "", false
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		appLog.Error("upload read failed", err, "file", header.Filename)
		writeText(w, http.StatusBadRequest, msgUnreadable)
		return nil, "", false
	}
	if int64(len(data)) > limit {
		writeText(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return nil, "", false
	}
	return data, header.Filename, true
}

// handleUpload converts an uploaded roster into a downloadable calendar.
//
// POST /upload (multipart/form-data, field "file") -> rooster.ics
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	res, err := s.conv.Convert(r.Context(), data, name)
	if err != nil {
		s.writeConvertError(w, err, name)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Calendar)
}

// eventDTO is a JSON-friendly view of a shift event. Times are naive local
// times and are rendered without an offset.
type eventDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Tag         string `json:"tag,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type extractResponse struct {
	File   string     `json:"file"`
	Events []eventDTO `json:"events"`
}

// handleExtract returns the extracted events as JSON so the UI can show a
// preview before downloading.
//
// POST /api/extract (multipart/form-data, field "file")
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	res, err := s.conv.Convert(r.Context(), data, name)
	if err != nil {
		s.writeConvertError(w, err, name)
		return
	}

	const layout = "2006-01-02T15:04:05"
	dtos := make([]eventDTO, 0, len(res.Events))
	for _, ev := range res.Events {
		dtos = append(dtos, eventDTO{
			Title:       ev.Title,
			Description: ev.Description,
			Kind:        ev.Kind.String(),
			Tag:         ev.Tag,
			Start:       ev.Start.Format(layout),
			End:         ev.End.Format(layout),
		})
	}
	writeJSON(w, http.StatusOK, extractResponse{File: name, Events: dtos})
}

func (s *Server) writeConvertError(w http.ResponseWriter, err error, name string) {
	switch {
	case errors.Is(err, roster.ErrNoShifts):
		writeText(w, http.StatusBadRequest, msgNoShifts)
	case errors.Is(err, pdftext.ErrUnsupported):
		writeText(w, http.StatusUnsupportedMediaType, msgUnreadable)
	default:
		appLog.Error("conversion failed", err, "file", name)
		writeText(w, http.StatusUnprocessableEntity, msgUnreadable)
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
