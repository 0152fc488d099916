package service

import (
	"context"
	"sync"

	"github.com/park285/chessboard-demo/internal/game"
	"github.com/park285/chessboard-demo/internal/store"
)

const (
	ReasonSuggestion = "suggestion"
	ReasonReset      = "reset"

	subscriberBuffer = 8
)

// Update is pushed to subscribers after every stored change.
type Update struct {
	Reason  string
	Session *store.Session
	// Transition is set for updates caused by a board interaction.
	Transition *game.Transition
}

// hub는 세션별로 업데이트를 팬아웃. 느린 구독자는 가장 오래된 업데이트를 잃는다(발행자는 블록되지 않음).
type hub struct {
	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]chan Update
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[uint64]chan Update)}
}

func (h *hub) subscribe(id string) (<-chan Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	key := h.next
	ch := make(chan Update, subscriberBuffer)
	if h.subs[id] == nil {
		h.subs[id] = make(map[uint64]chan Update)
	}
	h.subs[id][key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subs[id]; ok {
				if c, ok := subs[key]; ok {
					delete(subs, key)
					close(c)
				}
				if len(subs) == 0 {
					delete(h.subs, id)
				}
			}
		})
	}
}

func (h *hub) publish(sess *store.Session, reason string) {
	h.send(Update{Reason: reason, Session: sess})
}

func (h *hub) publishTransition(sess *store.Session, tr game.Transition) {
	h.send(Update{Reason: tr.Kind.String(), Session: sess, Transition: &tr})
}

func (h *hub) send(base Update) {
	if base.Session == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[base.Session.ID] {
		upd := base
		upd.Session = base.Session.Clone()
		select {
		case ch <- upd:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- upd:
		default:
		}
	}
}

func (h *hub) closeSession(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, ch := range h.subs[id] {
		delete(h.subs[id], key)
		close(ch)
	}
	delete(h.subs, id)
}

// Subscribe returns a channel of updates for one session. The channel is
// closed when cancel is called or the session is deleted.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Update, func(), error) {
	sess, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.subscribe(sess.ID)
	return ch, cancel, nil
}
