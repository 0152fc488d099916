// Package server exposes board sessions over HTTP and a per-session websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/park285/chessboard-demo/internal/presenter"
	"github.com/park285/chessboard-demo/internal/render"
	"github.com/park285/chessboard-demo/internal/service"
	"github.com/park285/chessboard-demo/internal/store"
	"github.com/park285/chessboard-demo/pkg/boarddto"
	"go.uber.org/zap"
)

const (
	maxBodyBytes      = 16 << 10
	defaultPNGSquare  = 64
	minPNGSquare      = 16
	maxPNGSquare      = 128
	defaultGamesLimit = 20
)

var errBadRequest = errors.New("bad request")

type Config struct {
	// AllowedOrigins are host patterns accepted on websocket upgrades.
	AllowedOrigins []string
}

type Server struct {
	svc    *service.Service
	pres   *presenter.Presenter
	cfg    Config
	logger *zap.Logger
	mux    *http.ServeMux
}

func New(svc *service.Service, pres *presenter.Presenter, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pres == nil {
		pres = presenter.New(svc.Catalog())
	}
	s := &Server{svc: svc, pres: pres, cfg: cfg, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("POST /api/sessions", s.handleStart)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleView)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/sessions/{id}/events", s.handleEvent)
	s.mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/sessions/{id}/suggest", s.handleSuggest)
	s.mux.HandleFunc("GET /api/sessions/{id}/games", s.handleSessionGames)
	s.mux.HandleFunc("GET /api/sessions/{id}/board.svg", s.handleSVG)
	s.mux.HandleFunc("GET /api/sessions/{id}/board.png", s.handlePNG)
	s.mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleWS)
	s.mux.HandleFunc("GET /api/games", s.handleRecentGames)
}

// Handler returns the mux wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req boarddto.StartRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.svc.Start(r.Context(), req.Variant, req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeView(w, http.StatusCreated, sess)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.View(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeView(w, http.StatusOK, sess)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req boarddto.EventRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.applyEvent(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := boarddto.EventResponse{
		Transition: res.Transition.Kind.String(),
		Message:    s.pres.EventMessage(res.Session, res.Transition),
		View:       s.view(res.Session),
	}
	if !res.Transition.Move.IsNull() {
		resp.Move = res.Transition.Move.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) applyEvent(ctx context.Context, id string, ev boarddto.EventRequest) (*service.Result, error) {
	switch strings.ToLower(strings.TrimSpace(ev.Type)) {
	case boarddto.EventClick:
		return s.svc.Click(ctx, id, ev.Square)
	case boarddto.EventDragStart:
		return s.svc.DragStart(ctx, id, ev.Square)
	case boarddto.EventDrop:
		return s.svc.Drop(ctx, id, ev.Square)
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", errBadRequest, ev.Type)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req boarddto.ResetRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.svc.Reset(r.Context(), r.PathValue("id"), req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeView(w, http.StatusOK, sess)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.RequestSuggestion(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeView(w, http.StatusOK, sess)
}

func (s *Server) handleSessionGames(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.svc.View(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	games, err := s.svc.SessionGames(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presenter.Records(games))
}

func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	limit := defaultGamesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, fmt.Errorf("%w: invalid limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}
	games, err := s.svc.RecentGames(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presenter.Records(games))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.View(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	body := render.SVG(&sess.State.Board, s.pres.RenderOptions(sess, 0))
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	size := defaultPNGSquare
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minPNGSquare || n > maxPNGSquare {
			s.writeError(w, fmt.Errorf("%w: size must be %d..%d", errBadRequest, minPNGSquare, maxPNGSquare))
			return
		}
		size = n
	}
	sess, err := s.svc.View(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	body, err := render.PNG(r.Context(), &sess.State.Board, s.pres.RenderOptions(sess, size))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

func (s *Server) view(sess *store.Session) *boarddto.SessionView {
	r, err := s.svc.RulesFor(sess)
	if err != nil {
		s.logger.Warn("rules lookup failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return s.pres.View(sess, r)
}

func (s *Server) writeView(w http.ResponseWriter, status int, sess *store.Session) {
	writeJSON(w, status, s.view(sess))
}

// classify maps service errors to an HTTP status and a wire error.
func classify(err error) (int, boarddto.DomainError) {
	body := boarddto.DomainError{Message: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		status, body.Code = http.StatusNotFound, boarddto.CodeNotFound
	case errors.Is(err, service.ErrUnknownVariant):
		status, body.Code = http.StatusBadRequest, boarddto.CodeUnknownVariant
	case errors.Is(err, service.ErrInvalidSquare):
		status, body.Code = http.StatusBadRequest, boarddto.CodeInvalidSquare
	case errors.Is(err, service.ErrInvalidSide), errors.Is(err, errBadRequest):
		status, body.Code = http.StatusBadRequest, boarddto.CodeBadRequest
	case errors.Is(err, service.ErrGameOver):
		status, body.Code = http.StatusConflict, boarddto.CodeGameOver
	case errors.Is(err, store.ErrConflict):
		status, body.Code, body.Retryable = http.StatusConflict, boarddto.CodeConflict, true
	case errors.Is(err, service.ErrEngineUnavailable):
		status, body.Code, body.Retryable = http.StatusServiceUnavailable, boarddto.CodeEngine, true
	default:
		body.Code, body.Message, body.Retryable = boarddto.CodeInternal, "internal error", true
	}
	return status, body
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody accepts an empty body as the zero request.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
