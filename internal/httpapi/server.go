package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/config"
	"github.com/ent0n29/levo/internal/conversation"
	"github.com/ent0n29/levo/internal/documents"
	"github.com/ent0n29/levo/internal/links"
	"github.com/ent0n29/levo/internal/observability"
)

type Chatter interface {
	Chat(ctx context.Context, req conversation.Request) (conversation.Reply, error)
	Stream(ctx context.Context, req conversation.Request) (<-chan completion.Chunk, error)
}

type Searcher interface {
	Resolve(ctx context.Context, query, site string, limit int) []links.Result
}

type NewsSource interface {
	Headlines(ctx context.Context, topic string) []links.Result
}

type Describer interface {
	Describe(ctx context.Context, image []byte, contentType, question string) (string, error)
}

type ImageMaker interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type FileStore interface {
	Save(kind documents.Kind, data []byte) (string, error)
	Lookup(name string) (string, documents.Kind, error)
}

// Deps are the collaborators behind the HTTP surface. Any of them may be
// nil; the matching routes then answer 503.
type Deps struct {
	Chat   Chatter
	Search Searcher
	News   NewsSource
	Vision Describer
	Images ImageMaker
	Files  FileStore
	Logger *zerolog.Logger
	// LLMMode is reported by the health endpoints.
	LLMMode string
}

type Server struct {
	cfg      config.Config
	deps     Deps
	logger   *zerolog.Logger
	metrics  *observability.Metrics
	limiter  *ipLimiter
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func New(cfg config.Config, deps Deps, metrics *observability.Metrics) *Server {
	if metrics == nil {
		metrics = observability.NewMetrics(cfg.MetricsNamespace)
	}
	logger := deps.Logger
	if logger == nil {
		logger = &log.Logger
	}
	validate := validator.New()
	_ = validate.RegisterValidation("notblank", validators.NotBlank)

	return &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		metrics:  metrics,
		limiter:  newIPLimiter(cfg.RateLimitPerMinute),
		validate: validate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the same origin unless
				// APP_ALLOW_ANY_ORIGIN is set.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"message": "levo is alive"})
	})
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Get("/v1/status", s.handleStatus)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/chat", s.handleChat)
		r.Get("/stream", s.handleStream)
		r.Get("/ws", s.handleChatWS)
	})

	r.Post("/vision", s.handleVision)
	r.Post("/image-generate", s.handleImageGenerate)
	r.Post("/create-pdf", s.handleCreateDocument(documents.KindPDF))
	r.Post("/create-txt", s.handleCreateDocument(documents.KindTXT))
	r.Post("/create-ppt", s.handleCreateDocument(documents.KindPPTX))
	r.Get("/files/{name}", s.handleFile)
	r.Get("/graph", s.handleGraph)
	r.Get("/news", s.handleNews)
	r.Get("/search", s.handleSearch)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"llm_mode": s.deps.LLMMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Chat == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "chat pipeline not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"llm_mode": s.deps.LLMMode,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// decodeAndValidate decodes a JSON body into out and applies its validate
// tags. It writes the 400 response itself and reports whether to continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := decodeJSON(r, out); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return field + " must not be empty"
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func (s *Server) unavailable(w http.ResponseWriter, what string) {
	respondError(w, http.StatusServiceUnavailable, "unavailable", what+" is not configured")
}
