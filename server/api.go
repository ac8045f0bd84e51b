package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/lplsense/framework/index"
	"github.com/lexcodex/lplsense/framework/lpl"
)

// APIServer exposes registry queries over HTTP for tooling without an
// editor.
type APIServer struct {
	Manager    *index.IndexManager
	DeepDetail bool
	Logger     *zap.Logger
}

// ResolveRequest asks what the token at a position refers to.
type ResolveRequest struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

// ResolveResponse carries a resolution.
type ResolveResponse struct {
	Kind        string       `json:"kind"`
	Name        string       `json:"name,omitempty"`
	Class       string       `json:"class,omitempty"`
	Definitions []lpl.Symbol `json:"definitions"`
	Hover       string       `json:"hover,omitempty"`
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger().Info("API listening", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler routes the API endpoints.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/classes", s.handleClasses)
	mux.HandleFunc("/api/outline", s.handleOutline)
	mux.HandleFunc("/api/resolve", s.handleResolve)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/report", s.handleReport)
	return mux
}

func (s *APIServer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *APIServer) handleClasses(w http.ResponseWriter, r *http.Request) {
	reg := s.Manager.Registry()
	summaries := make([]lpl.ClassSummary, 0)
	for _, name := range reg.ClassNames() {
		sum, err := reg.Summary(name)
		if err != nil {
			continue
		}
		summaries = append(summaries, sum)
	}
	writeJSON(w, summaries)
}

func (s *APIServer) handleOutline(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	doc, err := s.Manager.Document(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, doc.Outline(s.DeepDetail))
}

func (s *APIServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := s.Manager.Document(req.File)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	res := s.Manager.Registry().Resolve(req.File, doc.Lines, lpl.Position{Line: req.Line, Character: req.Character})
	resp := ResolveResponse{
		Kind:        res.Kind.String(),
		Name:        res.Name,
		Class:       res.Class,
		Definitions: res.Definitions,
		Hover:       res.HoverText,
	}
	if resp.Definitions == nil {
		resp.Definitions = []lpl.Symbol{}
	}
	writeJSON(w, resp)
}

func (s *APIServer) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags := s.Manager.Registry().Validate()
	if diags == nil {
		diags = []lpl.Diagnostic{}
	}
	writeJSON(w, diags)
}

func (s *APIServer) handleReport(w http.ResponseWriter, r *http.Request) {
	class := r.URL.Query().Get("class")
	rep, err := s.Manager.Registry().RestrictionReport(class)
	if errors.Is(err, lpl.ErrNoClass) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := rep.WriteCSV(w); err != nil {
		s.logger().Warn("write report", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
