package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/haivivi/antispoof/cmd/antispoof/internal/build"
	"github.com/haivivi/antispoof/pkg/antispoof"
	"github.com/haivivi/antispoof/pkg/audio/decode"
	"github.com/haivivi/antispoof/pkg/history"
	"github.com/haivivi/antispoof/pkg/storage"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in RAM.
const multipartMemory = 8 << 20

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	Success  bool                      `json:"success"`
	ID       string                    `json:"id"`
	Filename string                    `json:"filename"`
	Channels int                       `json:"channels"`
	Duration float64                   `json:"duration_seconds"`
	Results  []antispoof.ChannelResult `json:"results"`
	Archive  string                    `json:"archive,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

// writeJSON encodes v before writing the header, so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response", Kind: "internal"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
	return err
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "antispoof",
		"version": build.Version,
		"endpoints": map[string]string{
			"GET /health":           "service and model status",
			"POST /predict":         "classify an uploaded audio file (multipart field \"file\")",
			"GET /predictions":      "recent predictions (?limit=N)",
			"GET /predictions/{id}": "one stored prediction",
			"POST /cleanup":         "remove stale staged uploads",
			"GET /metrics":          "Prometheus metrics",
		},
		"allowed_extensions": s.cfg.AllowedExtensions,
	})
}

func (s *Server) modelLoaded() bool {
	return s.deps.Model == nil || s.deps.Model.Loaded()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Liveness only: a missing model is reported in the body, not the code.
	loaded := s.modelLoaded()
	status := "healthy"
	if !loaded {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"model_loaded": loaded,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !s.modelLoaded() {
		writeError(w, http.StatusServiceUnavailable, "model", antispoof.ErrNoModel)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload",
				fmt.Errorf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "upload", fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "upload", errors.New(`missing form file "file"`))
		return
	}
	defer file.Close()

	filename := storage.SanitizeName(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.allowed(ext) {
		writeError(w, http.StatusBadRequest, "upload",
			fmt.Errorf("unsupported file type %q, allowed: %s", ext, strings.Join(s.cfg.AllowedExtensions, ", ")))
		return
	}

	ctx := r.Context()
	staged := storage.StageName(s.now(), filename)
	n, err := storage.Put(ctx, s.deps.Staging, staged, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", errors.New("failed to stage upload"))
		s.log.Error("stage upload", "file", filename, "error", err)
		return
	}
	defer func() {
		if err := s.deps.Staging.Delete(ctx, staged); err != nil {
			s.log.Warn("remove staged upload", "file", staged, "error", err)
		}
	}()
	if s.deps.Metrics != nil {
		s.deps.Metrics.UploadBytes.Observe(float64(n))
	}

	start := time.Now()
	wf, err := s.deps.Loader.Load(ctx, s.deps.Staging.Abs(staged))
	if err != nil {
		var derr *decode.Error
		if errors.As(err, &derr) {
			derr.Source = filename
		}
		s.fail(w, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.DecodeDuration.Observe(time.Since(start).Seconds())
		s.deps.Metrics.AudioDuration.Observe(wf.Duration().Seconds())
	}

	start = time.Now()
	results, err := s.deps.Engine.Predict(wf)
	if err != nil {
		s.fail(w, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.InferenceDuration.Observe(time.Since(start).Seconds())
		s.deps.Metrics.ObserveResults(results)
	}

	rec := &history.Record{
		ID:        history.NewID(),
		Filename:  filename,
		CreatedAt: s.now().UTC(),
		Channels:  wf.NumChannels(),
		Duration:  wf.Duration().Seconds(),
		Results:   results,
	}
	rec.Archive = s.archive(r, staged, rec.ID+ext)
	if s.deps.History != nil {
		if err := s.deps.History.Put(ctx, rec); err != nil {
			s.log.Error("store prediction", "id", rec.ID, "error", err)
		}
	}

	s.log.Info("prediction complete",
		"id", rec.ID,
		"file", filename,
		"channels", rec.Channels,
		"duration", rec.Duration,
	)
	if err := writeJSON(w, http.StatusOK, PredictResponse{
		Success:  true,
		ID:       rec.ID,
		Filename: filename,
		Channels: rec.Channels,
		Duration: rec.Duration,
		Results:  results,
		Archive:  rec.Archive,
	}); err != nil {
		s.log.Error("encode prediction response", "id", rec.ID, "error", err)
	}
}

// archive copies the staged upload to the archive store and returns its
// storage path, or "" when archiving is off or fails.
func (s *Server) archive(r *http.Request, staged, name string) string {
	if s.deps.Archive == nil {
		return ""
	}
	ctx := r.Context()
	dst := path.Join("uploads", name)
	src, err := s.deps.Staging.Read(ctx, staged)
	if err == nil {
		_, err = storage.Put(ctx, s.deps.Archive, dst, src)
		src.Close()
	}
	if err != nil {
		s.log.Warn("archive upload", "path", dst, "error", err)
		if s.deps.Metrics != nil {
			s.deps.Metrics.ArchiveFails.Inc()
		}
		return ""
	}
	return dst
}

// fail maps pipeline errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		derr  *decode.Error
		ierr  *antispoof.InferenceError
		shape *antispoof.ShapeError
	)
	kind, status := "internal", http.StatusInternalServerError
	switch {
	case errors.As(err, &derr), errors.Is(err, antispoof.ErrEmptySignal):
		kind, status = "decode", http.StatusUnprocessableEntity
	case errors.Is(err, antispoof.ErrNoModel):
		kind, status = "model", http.StatusServiceUnavailable
	case errors.As(err, &ierr):
		kind = "inference"
	case errors.As(err, &shape):
		kind = "shape"
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.PredictionFailures.WithLabelValues(kind).Inc()
	}
	s.log.Warn("prediction failed", "kind", kind, "error", err)
	writeError(w, status, kind, err)
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, "history", errors.New("history is disabled"))
		return
	}
	id := r.PathValue("id")
	if !history.ValidID(id) {
		writeError(w, http.StatusBadRequest, "history", fmt.Errorf("invalid id %q", id))
		return
	}
	rec, err := s.deps.History.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "history", fmt.Errorf("prediction %s not found", id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, "history", errors.New("history is disabled"))
		return
	}
	limit := history.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "history", fmt.Errorf("limit must be 1..1000, got %q", v))
			return
		}
		limit = n
	}
	recs, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history", err)
		return
	}
	if recs == nil {
		recs = []*history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(recs),
		"predictions": recs,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := s.Sweep(r.Context())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusInternalServerError, "storage", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"removed": n,
	})
}
