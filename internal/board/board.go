// Package board holds the 8x8 grid of piece codes and its coordinate types.
package board

import (
	"fmt"
	"strings"
)

const Size = 8

const StartingPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// Board is indexed [row][col]; row 0 is rank 8.
type Board [Size][Size]Piece

func Starting() Board {
	b, err := ParsePlacement(StartingPlacement)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Empty
	}
	return b[sq.Row][sq.Col]
}

func (b *Board) Set(sq Square, p Piece) {
	if !sq.Valid() {
		return
	}
	b[sq.Row][sq.Col] = p
}

// Apply moves the piece on m.From to m.To and returns whatever stood on m.To.
func (b *Board) Apply(m Move) Piece {
	captured := b.At(m.To)
	b.Set(m.To, b.At(m.From))
	b.Set(m.From, Empty)
	return captured
}

// Count returns the number of occupied cells.
func (b *Board) Count() int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] != Empty {
				n++
			}
		}
	}
	return n
}

// Placement renders the FEN piece-placement field.
func (b *Board) Placement() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		gap := 0
		for c := 0; c < Size; c++ {
			p := b[r][c]
			if p == Empty {
				gap++
				continue
			}
			if gap > 0 {
				sb.WriteByte(byte('0' + gap))
				gap = 0
			}
			sb.WriteByte(byte(p))
		}
		if gap > 0 {
			sb.WriteByte(byte('0' + gap))
		}
	}
	return sb.String()
}

func ParsePlacement(s string) (Board, error) {
	var b Board
	field := strings.TrimSpace(s)
	if i := strings.IndexByte(field, ' '); i >= 0 {
		field = field[:i]
	}
	rows := strings.Split(field, "/")
	if len(rows) != Size {
		return Board{}, fmt.Errorf("placement %q: want %d ranks, got %d", s, Size, len(rows))
	}
	for r, row := range rows {
		c := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			if ch >= '1' && ch <= '8' {
				c += int(ch - '0')
				continue
			}
			p, err := ParsePiece(ch)
			if err != nil {
				return Board{}, fmt.Errorf("placement %q: %w", s, err)
			}
			if c >= Size {
				return Board{}, fmt.Errorf("placement %q: rank %d overflows", s, Size-r)
			}
			b[r][c] = p
			c++
		}
		if c != Size {
			return Board{}, fmt.Errorf("placement %q: rank %d has %d files", s, Size-r, c)
		}
	}
	return b, nil
}

func (b Board) MarshalText() ([]byte, error) { return []byte(b.Placement()), nil }

func (b *Board) UnmarshalText(text []byte) error {
	v, err := ParsePlacement(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// FEN builds a full FEN string. Castling rights are inferred from kings and
// rooks still on their home squares; en passant is never set.
func (b *Board) FEN(turn Side, fullmove int) string {
	if fullmove < 1 {
		fullmove = 1
	}
	return fmt.Sprintf("%s %s %s - 0 %d", b.Placement(), turn.Letter(), b.castling(), fullmove)
}

func (b *Board) castling() string {
	var sb strings.Builder
	if b[7][4] == 'K' {
		if b[7][7] == 'R' {
			sb.WriteByte('K')
		}
		if b[7][0] == 'R' {
			sb.WriteByte('Q')
		}
	}
	if b[0][4] == 'k' {
		if b[0][7] == 'r' {
			sb.WriteByte('k')
		}
		if b[0][0] == 'r' {
			sb.WriteByte('q')
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}
