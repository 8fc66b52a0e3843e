package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalyses "github.com/bryanwahyu/policy-analyzer/internal/application/analyses"
	domain "github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/middleware"
)

const (
	defaultMaxUpload = 20 << 20
	maxJSONBody      = 1 << 20
	multipartMemory  = 8 << 20
)

// Options wiring untuk router
type Options struct {
	Service        *appanalyses.Service
	Log            *zap.Logger
	Metrics        *middleware.Metrics // optional
	Checkers       map[string]middleware.HealthChecker
	CORSOrigins    []string
	MaxUploadBytes int64
}

type Router struct {
	svc       *appanalyses.Service
	log       *zap.Logger
	maxUpload int64
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := &Router{svc: opts.Service, log: log, maxUpload: maxUpload}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.Logging(log))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/health", middleware.LivenessHandler)
		rt.Get("/ready", middleware.ReadinessHandler(opts.Checkers))

		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/underpayment", r.wrap(r.handleUnderpayment))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Get("/failures", r.wrap(r.handleFailures))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError request-level error dengan status eksplisit
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		var herr *httpError
		switch {
		case errors.As(err, &herr):
			status = herr.status
		case errors.Is(err, domain.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		}
		if status >= 500 {
			r.log.Error("request failed",
				zap.String("path", req.URL.Path),
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.Error(err),
			)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/analyze
// multipart: file, state, policyType, lossDescription
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			return &httpError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("upload exceeds %d bytes", r.maxUpload)}
		}
		return badRequest("invalid multipart form: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	cmd := appanalyses.AnalyzeCommand{
		State:           middleware.SanitizeString(req.FormValue("state")),
		PolicyType:      middleware.SanitizeString(req.FormValue("policyType")),
		LossDescription: middleware.SanitizeString(req.FormValue("lossDescription")),
	}

	// file kosong dibiarkan, service yang menolak sekaligus dengan field lain
	file, hdr, err := req.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return badRequest("invalid file part: %v", err)
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return badRequest("read file part: %v", err)
		}
		cmd.PDF = data
		cmd.Filename = middleware.SanitizeString(hdr.Filename)
	}

	res, err := r.svc.Analyze(req.Context(), cmd)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /api/underpayment
// Body: {"id": "<analysis id>", "estimateText": "..."}
func (r *Router) handleUnderpayment(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ID           string `json:"id"`
		EstimateText string `json:"estimateText"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxJSONBody))
	if err := dec.Decode(&body); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}

	res, err := r.svc.CheckUnderpayment(req.Context(), appanalyses.UnderpaymentCommand{
		ID:           body.ID,
		EstimateText: body.EstimateText,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /api/analyses
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	items, err := r.svc.List(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, items)
	return nil
}

// GET /api/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	a, err := r.svc.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// GET /api/failures?limit=
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	items, err := r.svc.RecentFailures(req.Context(), middleware.ParseLimit(req.URL.Query().Get("limit")))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, items)
	return nil
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	// mime/multipart tidak selalu membungkus error aslinya
	return strings.Contains(err.Error(), "request body too large")
}
