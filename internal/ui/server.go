// Package ui serves the local settings page, the JSON API behind it and a
// live diagnostics stream.
package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"wootrat/internal/config"
	"wootrat/internal/curve"
	"wootrat/internal/keys"
	"wootrat/internal/motion"
)

const (
	defaultCurvePoints = 50
	maxCurvePoints     = 1000
)

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Str("subsystem", "ui").Logger()

// Status is what /api/status reports.
type Status struct {
	State      string `json:"state"`
	Paused     bool   `json:"paused"`
	Backend    string `json:"backend"`
	Devices    int    `json:"devices"`
	ConfigPath string `json:"config_path"`
	Error      string `json:"error,omitempty"`
}

// Controller is the running application as seen from the UI.
type Controller interface {
	Status() Status
	SetPaused(paused bool) error
}

// Options configures a Server.
type Options struct {
	Settings   *config.Manager
	Controller Controller
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Logger   *zerolog.Logger
	// Port 0 picks a free port.
	Port int
}

// Server provides the web-based configuration UI.
type Server struct {
	settings *config.Manager
	ctl      Controller
	gatherer prometheus.Gatherer
	log      *zerolog.Logger
	port     int
	hub      *hub

	listener net.Listener
	srv      *http.Server
}

// NewServer creates a new UI server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		l := defaultLogger
		opts.Logger = &l
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		settings: opts.Settings,
		ctl:      opts.Controller,
		gatherer: opts.Gatherer,
		log:      opts.Logger,
		port:     opts.Port,
	}
	s.hub = newHub(opts.Logger, s.statusMessage)
	return s
}

// Handler returns the routed handler. Start serves it; tests use it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/preset", s.handlePreset)
	mux.HandleFunc("/api/curve", s.handleCurve)
	mux.HandleFunc("/api/keys", s.handleKeys)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/pause", s.handlePause)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return s.recoverMiddleware(s.guardMiddleware(mux))
}

// Start listens on 127.0.0.1 and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("ui listen: %w", err)
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go s.hub.run()
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("ui server stopped")
		}
	}()
	s.log.Info().Str("url", s.URL()).Msg("settings UI listening")
	return nil
}

// URL returns the address the UI is served on, or "" before Start.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// Open shows the settings page in the default browser.
func (s *Server) Open() {
	if u := s.URL(); u != "" {
		openBrowser(s.log, u)
	}
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.close()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Observe forwards a loop tick to diagnostics clients. It never blocks and
// drops ticks beyond the stream rate.
func (s *Server) Observe(t motion.Tick) {
	s.hub.publishTick(t)
}

func openBrowser(log *zerolog.Logger, url string) {
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = exec.Command("open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		err = exec.Command("xdg-open", url).Start()
	}
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
	}
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("handler panic recovered")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps configuration problems to 422 so the page can highlight
// the offending field.
func writeError(w http.ResponseWriter, err error) {
	var cfgErr *motion.ConfigError
	if errors.As(err, &cfgErr) {
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error(), Field: cfgErr.Field})
		return
	}
	writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, newPageData()); err != nil {
		s.log.Error().Err(err).Msg("render index")
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settings.Get())
	case http.MethodPost:
		if !isJSON(r) {
			writeJSON(w, http.StatusUnsupportedMediaType, apiError{Error: "Content-Type must be application/json"})
			return
		}
		// Partial documents update only the keys they name.
		next := s.settings.Get()
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&next); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
			return
		}
		if err := s.settings.Update(next); err != nil {
			s.log.Warn().Err(err).Msg("settings update rejected")
			writeError(w, err)
			return
		}
		s.log.Info().Msg("settings updated from UI")
		writeJSON(w, http.StatusOK, s.settings.Get())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	next := s.settings.Get()
	if err := next.ApplyPreset(r.URL.Query().Get("name")); err != nil {
		writeError(w, err)
		return
	}
	if err := s.settings.Update(next); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.settings.Get())
}

// handleCurve samples the response curve. Query parameters override the
// stored shape so the page can preview values before saving them.
func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cur := s.settings.Get()

	n := defaultCurvePoints
	if v := q.Get("points"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 || p > maxCurvePoints {
			writeJSON(w, http.StatusBadRequest, apiError{Error: fmt.Sprintf("points must be an integer in [1,%d]", maxCurvePoints), Field: "points"})
			return
		}
		n = p
	}

	params := curve.Params{
		ActivationPoint:  cur.Deadzone,
		MaximumActuation: cur.OuterDeadzone,
		Factor:           cur.CurveFactor,
		Type:             curve.Type(cur.CurveType),
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"deadzone", &params.ActivationPoint},
		{"outer_deadzone", &params.MaximumActuation},
		{"curve_factor", &params.Factor},
	}
	for _, f := range floats {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error(), Field: f.key})
			return
		}
		*f.dst = x
	}
	if v := q.Get("curve_type"); v != "" {
		params.Type = curve.Type(v)
	}
	if typ, err := curve.ParseType(string(params.Type)); err == nil {
		params.Type = typ
	}

	pts, err := curve.Sample(params, n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": params.Type, "points": pts})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, keys.Names())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.ctl == nil {
		http.Error(w, "no controller", http.StatusServiceUnavailable)
		return
	}
	paused, err := strconv.ParseBool(r.URL.Query().Get("paused"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "paused must be true or false", Field: "paused"})
		return
	}
	if err := s.ctl.SetPaused(paused); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) status() Status {
	if s.ctl == nil {
		return Status{State: motion.Stopped.String(), ConfigPath: s.settings.Path()}
	}
	st := s.ctl.Status()
	if st.ConfigPath == "" {
		st.ConfigPath = s.settings.Path()
	}
	return st
}

func (s *Server) statusMessage() message {
	return message{Type: typeStatus, Payload: s.status()}
}
