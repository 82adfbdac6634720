// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the browser UI and its JSON API.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/paths"
	"pdf-toolbox/internal/resilience"
	"pdf-toolbox/internal/toolbox"
	"pdf-toolbox/internal/version"
)

//go:embed template.html
var embeddedTemplate string

// Options configures the server
type Options struct {
	Port        int
	MaxUploadMB int64
	ArtifactTTL time.Duration
}

// Server is the web UI server
type Server struct {
	opts     Options
	registry *toolbox.Registry
	store    *ArtifactStore
	observer *observability.StandardObserver
	mux      *http.ServeMux
	server   *http.Server
	started  time.Time
}

// RunResponse is the JSON answer to /api/run
type RunResponse struct {
	Success   bool           `json:"success"`
	Tool      string         `json:"tool,omitempty"`
	View      string         `json:"view,omitempty"`
	Text      string         `json:"text,omitempty"`
	Data      interface{}    `json:"data,omitempty"`
	Artifacts []ArtifactLink `json:"artifacts,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ArtifactLink points at a stored artifact
type ArtifactLink struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int    `json:"size"`
	URL  string `json:"url"`
}

// NewServer creates a server for the tools in registry
func NewServer(registry *toolbox.Registry, opts Options, observer *observability.StandardObserver) *Server {
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 100
	}
	s := &Server{
		opts:     opts,
		registry: registry,
		store:    NewArtifactStore(opts.ArtifactTTL),
		observer: observer,
		mux:      http.NewServeMux(),
		started:  time.Now(),
	}
	s.server = s.createSecureServer()
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.serveHome)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/tools", s.handleTools)
	s.mux.HandleFunc("/api/run", s.handleRun)
	s.mux.HandleFunc("/api/artifacts/", s.handleArtifact)
}

// Handler exposes the routes, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured port, moving on to the next nine ports
// when it is taken. It blocks until the server stops.
func (s *Server) Start() error {
	var lastError error
	for i := 0; i < 10; i++ {
		port := s.opts.Port + i

		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			lastError = err
			if i == 0 {
				s.observer.Logger().Warnf("Port %d is not available, trying alternative ports...", port)
			}
			continue
		}

		s.observer.Logger().WithField("port", port).Info("PDF Toolbox web UI started")
		fmt.Printf("PDF Toolbox running at http://localhost:%d\n", port)

		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server on port %d failed: %w", port, err)
		}
		return nil
	}

	return fmt.Errorf("could not find an available port in range %d-%d\n"+
		"Last error: %v\n"+
		"Troubleshooting:\n"+
		"  1. Check if other services are using these ports\n"+
		"  2. Try a specific port with --port <number>\n"+
		"  3. Ensure you have permission to bind to the requested port", s.opts.Port, s.opts.Port+9, lastError)
}

// Shutdown stops the server gracefully. Called before Start, it makes Start
// return without serving.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// createSecureServer creates an HTTP server with timeouts. Writes may wait
// on a remote model, so the write timeout is generous.
func (s *Server) createSecureServer() *http.Server {
	return &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

// serveHome serves the main HTML page
func (s *Server) serveHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" {
		s.sendErrorWithStatus(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, loadTemplate())
}

// loadTemplate prefers web/template.html on disk, for editing the UI
// without rebuilding, and falls back to the embedded copy.
func loadTemplate() string {
	if content, err := os.ReadFile(filepath.Clean(paths.JoinPath("web", "template.html"))); err == nil {
		return string(content)
	}
	return embeddedTemplate
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	versionInfo := version.Full()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pdf-toolbox",
		"version":   versionInfo["version"],
		"uptime_s":  int64(time.Since(s.started).Seconds()),
		"artifacts": s.store.Len(),
		"metrics":   s.registry.Metrics().Summary(),
		"build_info": map[string]interface{}{
			"version":    versionInfo["version"],
			"commit":     versionInfo["commit"],
			"build_date": versionInfo["buildDate"],
			"go_version": versionInfo["goVersion"],
			"platform":   versionInfo["platform"],
		},
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories":    s.registry.Categories(),
		"max_upload_mb": s.opts.MaxUploadMB,
	})
}

// handleRun runs one tool on the uploaded files
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := s.opts.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.sendErrorWithStatus(w, fmt.Sprintf("Upload too large (max %d MB)", s.opts.MaxUploadMB), http.StatusRequestEntityTooLarge)
			return
		}
		s.sendError(w, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := r.FormValue("tool")
	tool, ok := s.registry.Get(name)
	if !ok {
		s.sendError(w, fmt.Sprintf("Unknown tool %q", sanitizeUserInput(name, 40)))
		return
	}

	files, err := readUploads(r.MultipartForm.File["files"], maxBytes)
	if err != nil {
		s.sendErrorWithStatus(w, err.Error(), resilience.HTTPStatus(err))
		return
	}

	params := make(map[string]string)
	for key, values := range r.MultipartForm.Value {
		if key == "tool" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}

	res, err := s.registry.Run(r.Context(), name, toolbox.NewRequest(files, params))
	if err != nil {
		status := resilience.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			s.observer.Logger().WithError(err).WithField("tool", name).Error("tool failed")
		}
		s.sendErrorWithStatus(w, err.Error(), status)
		return
	}

	resp := RunResponse{Success: true, Tool: tool.Name, View: tool.View, Text: res.Text, Data: res.Data}
	for _, a := range res.Artifacts {
		id := s.store.Put(a)
		resp.Artifacts = append(resp.Artifacts, ArtifactLink{
			ID: id, Name: a.Name, MIME: a.MIME, Size: a.Size(), URL: "/api/artifacts/" + id,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// readUploads loads the uploaded files, accepting only PDFs
func readUploads(headers []*multipart.FileHeader, maxBytes int64) ([]toolbox.File, error) {
	if len(headers) == 0 {
		return nil, resilience.NewInvalidInputError("No files uploaded")
	}
	var total int64
	files := make([]toolbox.File, 0, len(headers))
	for _, h := range headers {
		name := paths.SafeBaseName(h.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			return nil, resilience.NewInvalidInputError("%s: file type not supported, only .pdf files are accepted", sanitizeUserInput(name, 80))
		}
		total += h.Size
		if total > maxBytes {
			return nil, resilience.NewInvalidInputError("Upload too large (max %d MB)", maxBytes>>20)
		}

		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", name, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", name, err)
		}
		if err := toolbox.CheckPDF(name, data); err != nil {
			return nil, resilience.NewInvalidInputError("%s", sanitizeUserInput(err.Error(), 200))
		}
		files = append(files, toolbox.File{Name: name, Data: data})
	}
	return files, nil
}

// handleArtifact downloads a stored artifact
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorWithStatus(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/artifacts/")
	a, ok := s.store.Get(id)
	if !ok {
		s.sendErrorWithStatus(w, "Download not found or expired", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", a.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", paths.SafeBaseName(a.Name)))
	w.Header().Set("Content-Length", fmt.Sprint(a.Size()))
	w.Write(a.Data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends a 400 error response
func (s *Server) sendError(w http.ResponseWriter, message string) {
	s.sendErrorWithStatus(w, message, http.StatusBadRequest)
}

// sendErrorWithStatus sends an error response with a specific HTTP status code
func (s *Server) sendErrorWithStatus(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, RunResponse{
		Success: false,
		Error:   enhanceErrorMessage(message, statusCode),
	})
}

// enhanceErrorMessage adds troubleshooting information to error messages
func enhanceErrorMessage(message string, statusCode int) string {
	switch {
	case strings.Contains(message, "Failed to parse form data"):
		return message + "\nTroubleshooting: Upload files as multipart/form-data using the 'files' field"
	case strings.Contains(message, "No files uploaded"), strings.Contains(message, "please upload"):
		return message + "\nTroubleshooting: Select a PDF file before clicking Run"
	case strings.Contains(message, "file type not supported"), strings.Contains(message, "is not a PDF"):
		return message + "\nTroubleshooting: Only PDF documents can be processed"
	case strings.Contains(message, "Upload too large"):
		return message + "\nTroubleshooting: Raise server.max_upload_mb in the configuration file"
	case strings.Contains(message, "OCR support not enabled"):
		return message + "\nTroubleshooting: Install Tesseract and rebuild with 'mage buildOCR'"
	case strings.Contains(message, "_API_KEY is not set"):
		return message + "\nTroubleshooting: Put the key in a .env file next to the binary"
	case statusCode == http.StatusBadGateway:
		return message + "\nTroubleshooting: The language model service failed; try again in a moment"
	case statusCode == http.StatusInternalServerError:
		return message + "\nTroubleshooting: Check server logs for detailed error information"
	case statusCode == http.StatusNotFound:
		return message + "\nTroubleshooting: Verify the requested resource path is correct"
	default:
		return message
	}
}

// sanitizeUserInput removes dangerous characters from user input for safe output
func sanitizeUserInput(input string, maxLength int) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, input)

	if utf8.RuneCountInString(sanitized) > maxLength {
		sanitized = string([]rune(sanitized)[:maxLength]) + "..."
	}
	return sanitized
}
