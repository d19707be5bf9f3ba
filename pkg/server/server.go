package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"igaudit/pkg/auth"
	errs "igaudit/pkg/errors"
	"igaudit/pkg/logger"
	"igaudit/pkg/report"
	"igaudit/pkg/scan"
	"igaudit/pkg/store"
)

// maxBodyBytes bounds command and import request bodies
const maxBodyBytes = 32 << 20

// Config wires the server to a scan engine and its store
type Config struct {
	ListenAddr string
	Engine     *scan.Engine
	Store      store.Store

	// Credentials fills in a START_SCAN that omits the session. Optional.
	Credentials auth.CredentialSource
	// DefaultDelay applies when a START_SCAN leaves delayMs at zero
	DefaultDelay time.Duration

	Logger logger.Logger
	Now    func() time.Time
}

// Server is the local HTTP + WebSocket surface of the engine
type Server struct {
	cfg      Config
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewServer creates a server; Engine and Store are required
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil || cfg.Store == nil {
		return nil, errors.New("server: engine and store are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: cfg.Logger.WithField("component", "server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Options("/*", s.optionsHandler("GET, POST"))
		r.Post("/commands", s.handleCommand)
		r.Get("/state", s.handleState)
		r.Get("/ws", s.handleWebSocket)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler. Bodies are never logged since
// commands carry the csrf token.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.DebugWithFields("http_request", map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"scanning": s.cfg.Engine.Scanning(),
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd scan.Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid command")
		return
	}

	status, ack := s.dispatch(r.Context(), cmd)
	writeJSON(w, status, ack)
}

// dispatch completes a command's config and hands it to the engine. It
// returns the HTTP status matching the acknowledgement.
func (s *Server) dispatch(ctx context.Context, cmd scan.Command) (int, scan.Ack) {
	if cmd.Action == scan.ActionStartScan {
		cfg := s.completeConfig(ctx, cmd.Config)
		cmd.Config = &cfg
		if err := cfg.Config().Validate(); err != nil {
			s.logger.WithError(err).Warn("Start rejected")
			return statusFor(err), scan.Ack{Error: errs.UserMessage(err)}
		}
	}

	ack := s.cfg.Engine.Dispatch(cmd)
	if ack.Error != "" {
		return http.StatusBadRequest, ack
	}
	return http.StatusAccepted, ack
}

// completeConfig fills a missing session from the credential source and a
// zero delay from the default
func (s *Server) completeConfig(ctx context.Context, in *scan.CommandConfig) scan.CommandConfig {
	var cfg scan.CommandConfig
	if in != nil {
		cfg = *in
	}

	if (cfg.UserID == "" || cfg.CSRFToken == "") && s.cfg.Credentials != nil {
		session, err := auth.DetectSession(ctx, s.cfg.Credentials)
		if err == nil {
			if cfg.UserID == "" {
				cfg.UserID = session.UserID
			}
			if cfg.CSRFToken == "" {
				cfg.CSRFToken = session.CSRFToken
			}
			if cfg.SessionID == "" {
				cfg.SessionID = session.SessionID
			}
		} else if !errors.Is(err, auth.ErrSessionNotFound) {
			s.logger.WithError(err).Warn("Credential lookup failed")
		}
	}

	if cfg.DelayMs == 0 && s.cfg.DefaultDelay > 0 {
		cfg.DelayMs = int(s.cfg.DefaultDelay / time.Millisecond)
	}
	return cfg
}

func statusFor(err error) int {
	if errs.IsType(err, errs.ErrorTypePreconditionMissing) {
		return http.StatusPreconditionFailed
	}
	return http.StatusBadRequest
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var keys []string
	if q := r.URL.Query().Get("keys"); q != "" {
		for _, k := range strings.Split(q, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}

	values, err := s.cfg.Store.Get(r.Context(), keys...)
	if err != nil {
		s.logger.WithError(err).Error("Reading state failed")
		writeError(w, http.StatusInternalServerError, "failed to read state")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	now := s.cfg.Now()
	doc, err := report.Export(r.Context(), s.cfg.Store, r.URL.Query().Get("userId"), now)
	if errors.Is(err, report.ErrNothingToExport) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	data, err := report.Marshal(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(now)+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Engine.Scanning() {
		writeError(w, http.StatusConflict, "scan in progress")
		return
	}

	doc, err := report.Import(r.Context(), s.cfg.Store, http.MaxBytesReader(w, r.Body, maxBodyBytes), s.cfg.Now())
	if errors.Is(err, report.ErrInvalidDocument) {
		writeError(w, http.StatusBadRequest, report.ErrInvalidDocument.Error())
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Import failed")
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	s.logger.InfoWithFields("Results imported", map[string]interface{}{"count": doc.Count})
	writeJSON(w, http.StatusOK, map[string]int{"count": doc.Count})
}
