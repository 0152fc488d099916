// Package boarddto holds the JSON types shared by the board server and its clients.
package boarddto

import "time"

type Cell struct {
	Square string `json:"square"`
	Class  string `json:"class"`
	Glyph  string `json:"glyph,omitempty"`
	Piece  string `json:"piece,omitempty"`
}

type Suggestion struct {
	ID        uint64 `json:"id"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Glyph     string `json:"glyph,omitempty"`
	Text      string `json:"text"`
	Pending   bool   `json:"pending"`
	Exhausted bool   `json:"exhausted"`
}

type Outcome struct {
	Result string `json:"result"`
	Method string `json:"method,omitempty"`
}

// SessionView is everything a client needs to redraw the board.
type SessionView struct {
	ID         string     `json:"id"`
	Variant    string     `json:"variant"`
	Player     string     `json:"player"`
	Turn       string     `json:"turn"`
	Status     string     `json:"status"`
	FEN        string     `json:"fen"`
	Flipped    bool       `json:"flipped"`
	Cells      []Cell     `json:"cells"`
	Selected   string     `json:"selected,omitempty"`
	LastMove   string     `json:"last_move,omitempty"`
	History    []string   `json:"history"`
	Cursor     int        `json:"cursor"`
	Suggestion Suggestion `json:"suggestion"`
	Outcome    *Outcome   `json:"outcome,omitempty"`
	GameNo     int        `json:"game_no"`
	Version    int64      `json:"version"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Update is pushed over the session websocket. Error is set, and View is
// empty, when an event sent over the socket failed.
type Update struct {
	Reason  string       `json:"reason"`
	Message string       `json:"message,omitempty"`
	View    *SessionView `json:"view,omitempty"`
	Error   *DomainError `json:"error,omitempty"`
}
