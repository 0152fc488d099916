package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/park285/chessboard-demo/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const ReasonSnapshot = "snapshot"

// handleWS pushes a view after every change to the session and applies event
// frames sent by the client. Results of those events arrive through the same
// update stream.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	updates, unsubscribe, err := s.svc.Subscribe(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.cfg.AllowedOrigins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := s.logger.With(zap.String("session_id", id))

	sess, err := s.svc.View(ctx, id)
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "session not found")
		return
	}
	if err := wsjson.Write(ctx, conn, boarddto.Update{Reason: ReasonSnapshot, View: s.view(sess)}); err != nil {
		return
	}

	go func() {
		defer cancel()
		for {
			var ev boarddto.EventRequest
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
					log.Debug("websocket read ended", zap.Error(err))
				}
				return
			}
			if _, err := s.applyEvent(ctx, id, ev); err != nil {
				_, body := classify(err)
				if werr := wsjson.Write(ctx, conn, boarddto.Update{Reason: "error", Error: &body}); werr != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case upd, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session deleted")
				return
			}
			out := boarddto.Update{Reason: upd.Reason, View: s.view(upd.Session)}
			if upd.Transition != nil {
				out.Message = s.pres.EventMessage(upd.Session, *upd.Transition)
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
