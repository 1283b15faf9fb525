package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnorm/internal/backend"
	"github.com/dgallion1/docnorm/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	job := s.orchestrator.NewJob(filename, data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/convert/%s/status", job.ID),
	})
}

// handleConvertSync runs the conversion inline and returns the full
// result, mapping conversion error classes onto HTTP status codes.
func (s *Server) handleConvertSync(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SyncTimeout)
	defer cancel()

	job := s.orchestrator.NewJob(filename, data)
	s.orchestrator.Convert(ctx, job)

	snap := job.Snapshot()
	if snap.Status == pipeline.StatusFailed {
		msg := "conversion failed"
		if len(snap.Errors) > 0 {
			msg = snap.Errors[0]
		}
		jsonError(w, msg, statusForClass(snap.FailClass))
		return
	}

	result := job.Result()
	if result == nil {
		jsonError(w, "conversion produced no result", http.StatusInternalServerError)
		return
	}
	writeResult(w, r, result)
}

func (s *Server) handleConvertStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleConvertResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	result := job.Result()
	if result == nil {
		snap := job.Snapshot()
		if snap.Status == pipeline.StatusFailed {
			msg := "conversion failed"
			if len(snap.Errors) > 0 {
				msg = snap.Errors[0]
			}
			jsonError(w, msg, statusForClass(snap.FailClass))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  "job not completed",
			"status": snap.Status,
		})
		return
	}
	writeResult(w, r, result)
}

// writeResult returns the full JSON result, or just the rendered
// Markdown when the caller asks for it with ?format=markdown or an
// Accept: text/markdown header.
func writeResult(w http.ResponseWriter, r *http.Request, result *pipeline.JobResult) {
	wantMarkdown := r.URL.Query().Get("format") == "markdown" ||
		strings.Contains(r.Header.Get("Accept"), "text/markdown")
	if wantMarkdown {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, result.Markdown)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleBatchConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !backend.IsSupported(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		job := s.orchestrator.NewJob(filename, data)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"doc_id":   job.DocID,
			"status":   job.Status,
			"poll_url": fmt.Sprintf("/api/convert/%s/status", job.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

// readUpload parses a single-file multipart upload, enforcing the
// size limit and format support before any work is queued.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !backend.IsSupported(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusUnsupportedMediaType)
		return "", nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	return filename, data, true
}

// statusForClass maps classified conversion failures onto HTTP codes.
// Unclassified failures (delivery, serialization) stay 500.
func statusForClass(class string) int {
	switch backend.ErrorClass(class) {
	case backend.ClassUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case backend.ClassMalformedSource:
		return http.StatusUnprocessableEntity
	case backend.ClassResourceResolution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
