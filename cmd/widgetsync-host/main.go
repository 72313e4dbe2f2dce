// widgetsync-host runs a host process widgets connect to over WebSocket.
//
// Each widget connection gets its own bridge and synchronizer. A small REST
// surface exposes the session list, current values, path edits, and review
// transitions so an operator (or another service) can drive connected
// widgets.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-widgetsync/pkg/bridge"
	"github.com/goliatone/go-widgetsync/pkg/bridge/wstransport"
	"github.com/goliatone/go-widgetsync/pkg/editor/tui"
	"github.com/goliatone/go-widgetsync/pkg/host"
	"github.com/goliatone/go-widgetsync/pkg/manifest"
	"github.com/goliatone/go-widgetsync/pkg/protocol"
)

// Config is the TOML server configuration.
type Config struct {
	Listen       string       `toml:"listen"`
	ReadTimeout  duration     `toml:"read_timeout"`
	WriteTimeout duration     `toml:"write_timeout"`
	Review       ReviewConfig `toml:"review"`
}

// ReviewConfig selects the review signaling dialect.
type ReviewConfig struct {
	Legacy bool `toml:"legacy"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func defaultConfig() Config {
	return Config{
		Listen:       ":8780",
		ReadTimeout:  duration{15 * time.Second},
		WriteTimeout: duration{15 * time.Second},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// session is one connected widget: its transport, bridge, and synchronizer.
type session struct {
	id   string
	sync *host.Synchronizer
	br   *bridge.Bridge
}

type server struct {
	cfg      Config
	expected *manifest.Manifest
	edit     bool
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

func newServer(cfg Config) *server {
	return &server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[string]*session),
	}
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleConnect)
	r.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/schema", s.handleSchema).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/values", s.handleValues).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/values/{path}", s.handleSet).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/review", s.handleEnterReview).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/review", s.handleExitReview).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/submission", s.handleSubmission).Methods(http.MethodGet)
	return r
}

func (s *server) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade: %v", err)
		return
	}

	transport := wstransport.New(conn)
	br := bridge.New(bridge.WithTransports(transport))

	var opts []host.Option
	if s.cfg.Review.Legacy {
		opts = append(opts, host.WithLegacyReviewSignaling())
	}
	sess := &session{
		id:   uuid.NewString(),
		sync: host.New(br, opts...),
		br:   br,
	}
	sess.sync.OnReady(func(info host.WidgetInfo) {
		log.Printf("session %s: widget %s %s ready", sess.id, info.Name, info.Version)
		if s.expected != nil && info.Name != s.expected.Name {
			log.Printf("session %s: expected widget %q per manifest, got %q",
				sess.id, s.expected.Name, info.Name)
		}
		if s.edit {
			go s.runEditor(sess)
		}
	})
	sess.sync.OnSubmission(func(sub protocol.Submission) {
		log.Printf("session %s: submission %s score %v/%v", sess.id, sub.ID,
			sub.Evaluation.Score, sub.Evaluation.MaxScore)
	})
	sess.sync.OnError(func(err error) {
		log.Printf("session %s: %v", sess.id, err)
	})

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	log.Printf("session %s: connected from %s", sess.id, r.RemoteAddr)

	go func() {
		<-transport.Done()
		s.dropSession(sess)
	}()
}

// dropSession reaps a session whose connection died so /sessions only lists
// live widgets.
func (s *server) dropSession(sess *session) {
	s.mu.Lock()
	_, present := s.sessions[sess.id]
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	if !present {
		return
	}
	sess.sync.Close()
	if err := sess.br.Close(); err != nil {
		log.Printf("session %s: close: %v", sess.id, err)
	}
	log.Printf("session %s: disconnected", sess.id)
}

// runEditor walks the announced schema at the terminal and pushes the edits.
// One editing pass per connection; the REST surface stays available for
// further changes.
func (s *server) runEditor(sess *session) {
	editor := tui.New()
	if err := editor.Run(context.Background(), sess.sync); err != nil {
		log.Printf("session %s: editor: %v", sess.id, err)
	}
}

func (s *server) session(w http.ResponseWriter, r *http.Request) *session {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	sess := s.sessions[id]
	s.mu.Unlock()
	if sess == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return nil
	}
	return sess
}

func (s *server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		ID     string `json:"id"`
		Widget string `json:"widget,omitempty"`
		Ready  bool   `json:"ready"`
	}
	s.mu.Lock()
	out := make([]entry, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, entry{ID: sess.id, Widget: sess.sync.Info().Name, Ready: sess.sync.Ready()})
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, sess.sync.Schema())
}

func (s *server) handleValues(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, sess.sync.Values())
}

func (s *server) handleSet(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	path := mux.Vars(r)["path"]
	if err := sess.sync.Set(path, value); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := sess.sync.Push(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleEnterReview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var body struct {
		Answer any `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.sync.EnterReview(r.Context(), body.Answer); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleExitReview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.sync.ExitReview(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	submission, ok := sess.sync.LastSubmission()
	if !ok {
		http.Error(w, "no submission yet", http.StatusNotFound)
		return
	}
	writeJSON(w, submission)
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	manifestPath := flag.String("manifest", "", "manifest of the expected widget")
	edit := flag.Bool("edit", false, "run a terminal editing pass when a widget connects")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	srv := newServer(cfg)
	srv.edit = *edit
	if *manifestPath != "" {
		m, err := manifest.NewLoader().LoadManifest(context.Background(), manifest.SourceFromFile(*manifestPath))
		if err != nil {
			log.Fatalf("load manifest: %v", err)
		}
		srv.expected = &m
		log.Printf("expecting widget %s %s (%d parameters)", m.Name, m.Version, m.Parameters.Len())
	}
	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.routes(),
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
	}

	go func() {
		log.Printf("listening on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	srv.mu.Lock()
	remaining := make([]*session, 0, len(srv.sessions))
	for _, sess := range srv.sessions {
		remaining = append(remaining, sess)
	}
	srv.mu.Unlock()
	for _, sess := range remaining {
		srv.dropSession(sess)
	}
}
