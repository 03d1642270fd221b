// Package panel serves the web control surface: password login, status,
// configuration editing, the QR session login flow and start/stop control.
package panel

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/bot"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/telegram"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/userconfig"
)

//go:embed index.html
var staticFS embed.FS

const maxBodyBytes = 1 << 20

// Controller is the bot surface the panel drives. *bot.Controller
// implements it.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Status() bot.Status
	CheckAuthorized(ctx context.Context) bool
	BeginLoginFlow(ctx context.Context, onChallenge func(telegram.Challenge)) (bool, error)
}

// ConfigStore is the persisted panel configuration. *userconfig.Manager
// implements it.
type ConfigStore interface {
	Get() userconfig.Config
	Update(userconfig.Config) (userconfig.Config, error)
}

type Options struct {
	Password   string
	Controller Controller
	Config     ConfigStore
	// LogPath is the process log file served by GET /api/logs; empty when
	// file logging is off.
	LogPath string
	Logger  *slog.Logger
}

// QR login flow states, as reported by GET /api/qr.
const (
	qrStatusGenerating        = "generating"
	qrStatusWaiting           = "waiting"
	qrStatusSuccess           = "success"
	qrStatusAlreadyAuthorized = "already_authorized"
	qrStatusError             = "error"
)

type qrView struct {
	status  string
	dataURL string
	issued  time.Time
}

type Server struct {
	password   string
	controller Controller
	config     ConfigStore
	logPath    string
	logger     *slog.Logger

	tokenMu sync.Mutex
	tokens  map[string]struct{}

	qrMu     sync.Mutex
	qrActive bool
	qr       qrView
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		password:   opts.Password,
		controller: opts.Controller,
		config:     opts.Config,
		logPath:    opts.LogPath,
		logger:     logger,
		tokens:     make(map[string]struct{}),
	}
}

// Handler builds the panel router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/api/status", s.handleStatus)
		r.Post("/api/config", s.handleConfig)
		r.Get("/api/qr", s.handleQR)
		r.Get("/api/logs", s.handleLogs)
		r.Post("/api/start", s.handleStart)
		r.Post("/api/stop", s.handleStop)
	})

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "panel page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.password)) != 1 {
		s.logger.Warn("panel_login_rejected")
		writeError(w, http.StatusForbidden, "invalid password")
		return
	}

	token := uuid.NewString()
	s.tokenMu.Lock()
	s.tokens[token] = struct{}{}
	s.tokenMu.Unlock()

	s.logger.Info("panel_login_ok")
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.tokenMu.Lock()
		_, valid := s.tokens[token]
		s.tokenMu.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.controller.Status()
	var since *string
	if st.ConnectedSince != nil {
		v := st.ConnectedSince.UTC().Format(time.RFC3339)
		since = &v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bot": map[string]any{
			"running":        st.Running,
			"connectedSince": since,
		},
		"config":       s.config.Get(),
		"tgAuthorized": s.controller.CheckAuthorized(r.Context()),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var in userconfig.Config
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := s.config.Update(in)
	if err != nil {
		s.logger.Error("panel_config_update_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to persist configuration")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": cfg})
}

// handleQR reports the QR login flow state and starts the flow in the
// background when none is running. The flow outlives the polling requests,
// so the clients only ever observe and never block on the handshake.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	s.qrMu.Lock()
	terminal := s.qr.status == qrStatusSuccess || s.qr.status == qrStatusAlreadyAuthorized
	s.qrMu.Unlock()

	// A stale "logged in" verdict must not hide a signed-out session.
	if terminal && !s.controller.CheckAuthorized(r.Context()) {
		s.qrMu.Lock()
		if !s.qrActive {
			s.qr = qrView{}
		}
		s.qrMu.Unlock()
	}

	s.qrMu.Lock()
	if !s.qrActive && s.qr.status != qrStatusSuccess && s.qr.status != qrStatusAlreadyAuthorized {
		s.qrActive = true
		s.qr = qrView{status: qrStatusGenerating}
		go s.runLoginFlow()
	}
	view := s.qr
	s.qrMu.Unlock()

	resp := map[string]any{
		"qrCode":      nil,
		"status":      view.status,
		"qrTimestamp": nil,
	}
	if view.dataURL != "" {
		resp["qrCode"] = view.dataURL
	}
	if !view.issued.IsZero() {
		resp["qrTimestamp"] = view.issued.UnixMilli()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runLoginFlow() {
	// Not tied to any single HTTP request.
	ctx := context.Background()

	challenges := 0
	ok, err := s.controller.BeginLoginFlow(ctx, func(ch telegram.Challenge) {
		s.qrMu.Lock()
		challenges++
		s.qr = qrView{
			status:  qrStatusWaiting,
			dataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(ch.PNG),
			issued:  ch.IssuedAt,
		}
		s.qrMu.Unlock()
	})

	s.qrMu.Lock()
	defer s.qrMu.Unlock()
	s.qrActive = false
	switch {
	case err != nil:
		s.logger.Error("panel_qr_flow_error", "error", err.Error())
		s.qr = qrView{status: qrStatusError}
	case ok && challenges == 0:
		s.qr = qrView{status: qrStatusAlreadyAuthorized}
	case ok:
		s.qr = qrView{status: qrStatusSuccess}
	default:
		s.qr = qrView{status: qrStatusError}
	}
}

const logTailLines = 50

// handleLogs serves the tail of the process log file. An absent or empty
// file reads as no entries, not an error.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logPath == "" {
		writeJSON(w, http.StatusOK, map[string]any{"logs": []string{}})
		return
	}
	lines, err := tailLines(s.logPath, logTailLines)
	if err != nil {
		s.logger.Error("panel_logs_read_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to read log file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": lines})
}

func tailLines(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return []string{}, nil
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Start(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bot.ErrMissingConfiguration) || errors.Is(err, bot.ErrNotAuthorized) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(raw) <= len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(raw[len(prefix):])
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(msg)})
}
