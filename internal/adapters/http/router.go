package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/electoral-rag/internal/config"
	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

// DocumentUploader stores an uploaded file and ingests it.
type DocumentUploader interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.IngestReport, error)
}

type Router struct {
	cfg      config.Config
	queryUC  ports.QueryService
	ingestUC ports.DocumentIngestor
	uploader DocumentUploader
	queue    ports.IngestQueue
	metrics  http.Handler
}

type Option func(*Router)

// WithIngestQueue enables asynchronous ingestion requests.
func WithIngestQueue(queue ports.IngestQueue) Option {
	return func(rt *Router) { rt.queue = queue }
}

func WithMetricsHandler(h http.Handler) Option {
	return func(rt *Router) { rt.metrics = h }
}

func NewRouter(
	cfg config.Config,
	queryUC ports.QueryService,
	ingestUC ports.DocumentIngestor,
	uploader DocumentUploader,
	opts ...Option,
) *Router {
	rt := &Router{
		cfg:      cfg,
		queryUC:  queryUC,
		ingestUC: ingestUC,
		uploader: uploader,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/rag/query", rt.queryRAG)
	mux.HandleFunc("POST /v1/documents", rt.addDocuments)
	mux.HandleFunc("POST /v1/documents/upload", rt.uploadDocument)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics)
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type queryRequest struct {
	Question  string         `json:"question"`
	TopK      int            `json:"top_k"`
	Translate bool           `json:"translate"`
	Filter    map[string]any `json:"filter"`
	Hybrid    *bool          `json:"hybrid"`
}

type addDocumentsRequest struct {
	Paths []string `json:"paths"`
	Async bool     `json:"async"`
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		rt.writeError(w, r, http.StatusBadRequest, "question is required")
		return
	}
	if req.TopK < 0 {
		rt.writeError(w, r, http.StatusBadRequest, "top_k must not be negative")
		return
	}

	opts := domain.QueryOptions{
		TopK:      req.TopK,
		Translate: req.Translate,
		Filter:    domain.Filter(req.Filter),
	}
	if req.Hybrid != nil && !*req.Hybrid {
		opts.DisableLexical = true
	}

	answer, err := rt.queryUC.Answer(r.Context(), req.Question, opts)
	if err != nil {
		rt.writeError(w, r, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) addDocuments(w http.ResponseWriter, r *http.Request) {
	var req addDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		rt.writeError(w, r, http.StatusBadRequest, "paths are required")
		return
	}
	if rt.cfg.IngestRootDir == "" {
		rt.writeError(w, r, http.StatusNotImplemented, "path ingestion is not configured")
		return
	}
	paths, err := confinePaths(rt.cfg.IngestRootDir, paths)
	if err != nil {
		rt.writeError(w, r, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if req.Async {
		if rt.queue == nil {
			rt.writeError(w, r, http.StatusNotImplemented, "asynchronous ingestion is not configured")
			return
		}
		if err := rt.queue.PublishIngestRequest(r.Context(), paths); err != nil {
			rt.writeError(w, r, mapErrorToHTTPStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"queued": len(paths)})
		return
	}

	report, err := rt.ingestUC.AddPaths(r.Context(), paths)
	if err != nil {
		rt.writeError(w, r, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.uploader == nil {
		rt.writeError(w, r, http.StatusNotImplemented, "uploads are not configured")
		return
	}
	if rt.cfg.APIMaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.APIMaxUploadBytes)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if status := mapErrorToHTTPStatus(err); status == http.StatusRequestEntityTooLarge {
			rt.writeError(w, r, status, "upload too large")
			return
		}
		rt.writeError(w, r, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	report, err := rt.uploader.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		rt.writeError(w, r, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if report.Count(domain.PathProcessed) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: requestIDFromContext(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
