// Package archive stores finished or abandoned games.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

var ErrDuplicateGame = errors.New("game already archived")

const (
	ResultWhite     = "white"
	ResultBlack     = "black"
	ResultDraw      = "draw"
	ResultAbandoned = "abandoned"
)

type GameRecord struct {
	ID        int64
	SessionID string
	GameNo    int
	Variant   string
	Player    string
	Result    string
	Method    string
	MovesUCI  []string
	PGN       string
	FinalFEN  string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

type Repository interface {
	InsertGame(ctx context.Context, rec *GameRecord) (int64, error)
	ListBySession(ctx context.Context, sessionID string) ([]*GameRecord, error)
	Recent(ctx context.Context, limit int) ([]*GameRecord, error)
	Close() error
}

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case ResultWhite:
		return "1-0"
	case ResultBlack:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN replays the moves with the rules library to get SAN. It returns ""
// when the moves are not a legal game, which is normal for scripted boards.
func BuildPGN(rec *GameRecord) string {
	if rec == nil {
		return ""
	}
	san, ok := sanMoves(rec.MovesUCI)
	if !ok {
		return ""
	}
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	pgnResult := mapResultToPGN(rec.Result)

	white, black := "Opponent", "Opponent"
	if rec.Player == ResultWhite {
		white = "Player"
	} else {
		black = "Player"
	}

	var b strings.Builder
	b.WriteString("[Event \"Chessboard demo\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", white))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", black))
	b.WriteString(fmt.Sprintf("[Variant \"%s\"]\n", sanitizePGN(rec.Variant)))
	if m := strings.TrimSpace(rec.Method); m != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(m))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(san); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, san[i]))
		if i+1 < len(san) {
			b.WriteString(" ")
			b.WriteString(san[i+1])
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanMoves(moves []string) ([]string, bool) {
	game := nchess.NewGame()
	out := make([]string, 0, len(moves))
	for _, raw := range moves {
		pos := game.Position()
		mv, err := nchess.UCINotation{}.Decode(pos, raw)
		if err != nil {
			mv, err = nchess.UCINotation{}.Decode(pos, raw+"q")
			if err != nil {
				return nil, false
			}
		}
		out = append(out, nchess.AlgebraicNotation{}.Encode(pos, mv))
		if err := game.Move(mv, nil); err != nil {
			return nil, false
		}
	}
	return out, true
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
