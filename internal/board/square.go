package board

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSquare = errors.New("invalid square")

// Square addresses a cell. Row 0 is rank 8, column 0 is file a.
type Square struct {
	Row int
	Col int
}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// Name returns the algebraic name, e.g. "e4".
func (s Square) Name() string {
	if !s.Valid() {
		return ""
	}
	return string([]byte{byte('a' + s.Col), byte('0' + Size - s.Row)})
}

func (s Square) String() string { return s.Name() }

// Rank is 1..8.
func (s Square) Rank() int { return Size - s.Row }

func ParseSquare(name string) (Square, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) != 2 || n[0] < 'a' || n[0] > 'h' || n[1] < '1' || n[1] > '8' {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, name)
	}
	return Square{Row: Size - int(n[1]-'0'), Col: int(n[0] - 'a')}, nil
}

func MustSquare(name string) Square {
	sq, err := ParseSquare(name)
	if err != nil {
		panic(err)
	}
	return sq
}

func (s Square) MarshalText() ([]byte, error) { return []byte(s.Name()), nil }

func (s *Square) UnmarshalText(b []byte) error {
	v, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Move is a (from, to) pair written in coordinate notation ("e2e4").
type Move struct {
	From Square
	To   Square
}

func (m Move) String() string { return m.From.Name() + m.To.Name() }

func (m Move) IsNull() bool { return m.From == m.To }

// ParseMove reads the first four characters of a coordinate move; a trailing
// promotion letter is tolerated and dropped.
func ParseMove(s string) (Move, error) {
	v := strings.TrimSpace(s)
	if len(v) < 4 {
		return Move{}, fmt.Errorf("invalid move %q", s)
	}
	from, err := ParseSquare(v[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(v[2:4])
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to}, nil
}

func MustMove(s string) Move {
	m, err := ParseMove(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Move) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Move) UnmarshalText(b []byte) error {
	v, err := ParseMove(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
