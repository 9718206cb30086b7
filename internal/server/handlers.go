package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atim-dev/atim/internal/analysis"
	"github.com/atim-dev/atim/internal/inventory"
	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/storage"
)

// maxListedReports caps GET /reports when no limit is given.
const maxListedReports = 50

type uploadResponse struct {
	Success bool `json:"success"`
	*analysis.Result
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, indexPage, s.defaults.MaxKeywords, s.defaults.MinConfidence, s.config.MaxUploadBytes>>20)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (limit %d MB)", s.config.MaxUploadBytes>>20), nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "No file provided", nil)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondWithError(w, http.StatusBadRequest, "No file selected", nil)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		respondWithError(w, http.StatusBadRequest, "Invalid file type. Please upload a CSV file.", nil)
		return
	}

	opts, err := s.optionsFromForm(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid configuration: "+err.Error(), nil)
		return
	}

	items, err := inventory.Parse(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid inventory file: "+err.Error(), nil)
		return
	}

	logger.Info("Analyzing %s (%d items, max_keywords=%d, min_confidence=%.1f)",
		header.Filename, len(items), opts.MaxKeywords, opts.MinConfidence)

	result, err := s.analyzer.Run(r.Context(), items, opts)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Analysis failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, uploadResponse{Success: true, Result: result})
}

// optionsFromForm overrides the defaults with max_keywords and min_confidence
// form values when present.
func (s *Server) optionsFromForm(r *http.Request) (analysis.Options, error) {
	opts := s.defaults

	if raw := strings.TrimSpace(r.FormValue("max_keywords")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("max_keywords must be an integer, got %q", raw)
		}
		opts.MaxKeywords = n
	}
	if raw := strings.TrimSpace(r.FormValue("min_confidence")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, fmt.Errorf("min_confidence must be a number, got %q", raw)
		}
		opts.MinConfidence = f
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondWithError(w, http.StatusNotFound, "Report archive is disabled", nil)
		return
	}

	limit := maxListedReports
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	reports, err := s.store.ListReports(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}
	respondWithJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondWithError(w, http.StatusNotFound, "Report archive is disabled", nil)
		return
	}

	id := chi.URLParam(r, "id")
	rep, err := s.store.GetReport(id)
	if err != nil {
		if errors.Is(err, storage.ErrReportNotFound) {
			respondWithError(w, http.StatusNotFound, "Report not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to load report", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rep.HTML))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		logger.Error("%s: %v", message, err)
	} else if err != nil {
		logger.Debug("%s: %v", message, err)
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Trend &amp; Inventory Manager</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 3rem auto; max-width: 640px; color: #222; }
label { display: block; margin-top: 1rem; }
input[type=number] { width: 6rem; }
button { margin-top: 1.5rem; padding: .5rem 1.25rem; }
#result { margin-top: 2rem; white-space: pre-wrap; font-family: monospace; }
</style>
</head>
<body>
<h1>Trend &amp; Inventory Manager</h1>
<p>Upload an inventory CSV to rank product trends and get restocking recommendations.</p>
<form id="upload" action="/upload" method="post" enctype="multipart/form-data">
  <label>Inventory CSV <input type="file" name="file" accept=".csv" required></label>
  <label>Max keywords <input type="number" name="max_keywords" value="%d" min="1"></label>
  <label>Min confidence <input type="number" name="min_confidence" value="%.1f" min="0" max="100" step="0.5"></label>
  <p><small>Maximum file size: %d MB</small></p>
  <button type="submit">Analyze</button>
</form>
<div id="result"></div>
<script>
document.getElementById("upload").addEventListener("submit", async (e) => {
  e.preventDefault();
  const out = document.getElementById("result");
  out.textContent = "Analyzing...";
  const resp = await fetch("/upload", { method: "POST", body: new FormData(e.target) });
  const body = await resp.json();
  if (!resp.ok) { out.textContent = "Error: " + body.error; return; }
  if (body.report_url) { window.location = body.report_url; return; }
  out.textContent = JSON.stringify(body, null, 2);
});
</script>
</body>
</html>
`
