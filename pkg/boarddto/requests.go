package boarddto

import "time"

const (
	EventClick     = "click"
	EventDragStart = "dragstart"
	EventDrop      = "drop"
)

type StartRequest struct {
	Variant string `json:"variant,omitempty"`
	Side    string `json:"side,omitempty"`
}

// ResetRequest may switch sides; an empty Side keeps the current one.
type ResetRequest struct {
	Side string `json:"side,omitempty"`
}

type EventRequest struct {
	Type   string `json:"type"`
	Square string `json:"square"`
}

type EventResponse struct {
	Transition string       `json:"transition"`
	Move       string       `json:"move,omitempty"`
	Message    string       `json:"message,omitempty"`
	View       *SessionView `json:"view"`
}

type GameRecord struct {
	SessionID  string    `json:"session_id"`
	GameNo     int       `json:"game_no"`
	Variant    string    `json:"variant"`
	Player     string    `json:"player"`
	Result     string    `json:"result"`
	Method     string    `json:"method,omitempty"`
	Moves      []string  `json:"moves"`
	PGN        string    `json:"pgn,omitempty"`
	FinalFEN   string    `json:"final_fen"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
}

type GameList struct {
	Games []GameRecord `json:"games"`
}
