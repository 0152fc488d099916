package board

import (
	"fmt"
	"strings"
)

// Side identifies one of the two players.
type Side uint8

const (
	White Side = iota
	Black
)

func (s Side) Opposite() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Letter is the FEN active-colour letter.
func (s Side) Letter() string {
	if s == Black {
		return "b"
	}
	return "w"
}

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return White, fmt.Errorf("unknown side %q", s)
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type PieceType uint8

const (
	NoType PieceType = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

func (t PieceType) String() string {
	switch t {
	case Pawn:
		return "pawn"
	case Rook:
		return "rook"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return ""
	}
}

// Piece is a single-character piece code: uppercase is White, lowercase is Black.
type Piece byte

const Empty Piece = 0

var glyphs = map[Piece]string{
	'p': "♟", 'r': "♜", 'n': "♞", 'b': "♝", 'q': "♛", 'k': "♚",
	'P': "♙", 'R': "♖", 'N': "♘", 'B': "♗", 'Q': "♕", 'K': "♔",
}

func ParsePiece(c byte) (Piece, error) {
	p := Piece(c)
	if _, ok := glyphs[p]; !ok {
		return Empty, fmt.Errorf("invalid piece code %q", c)
	}
	return p, nil
}

// NewPiece builds the code for a side and type.
func NewPiece(s Side, t PieceType) Piece {
	var c byte
	switch t {
	case Pawn:
		c = 'p'
	case Rook:
		c = 'r'
	case Knight:
		c = 'n'
	case Bishop:
		c = 'b'
	case Queen:
		c = 'q'
	case King:
		c = 'k'
	default:
		return Empty
	}
	if s == White {
		c -= 'a' - 'A'
	}
	return Piece(c)
}

func (p Piece) IsEmpty() bool { return p == Empty }

func (p Piece) Side() Side {
	if p >= 'A' && p <= 'Z' {
		return White
	}
	return Black
}

func (p Piece) Type() PieceType {
	c := p
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	switch c {
	case 'p':
		return Pawn
	case 'r':
		return Rook
	case 'n':
		return Knight
	case 'b':
		return Bishop
	case 'q':
		return Queen
	case 'k':
		return King
	default:
		return NoType
	}
}

// Glyph returns the unicode chess symbol, or "" for an empty square.
func (p Piece) Glyph() string { return glyphs[p] }

func (p Piece) String() string {
	if p == Empty {
		return ""
	}
	return string(rune(p))
}

func (p Piece) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Piece) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*p = Empty
		return nil
	}
	if len(b) != 1 {
		return fmt.Errorf("invalid piece code %q", string(b))
	}
	v, err := ParsePiece(b[0])
	if err != nil {
		return err
	}
	*p = v
	return nil
}
