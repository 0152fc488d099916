package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/park285/chessboard-demo/internal/board"
)

const defaultSquareSize = 64

// Options control both SVG and PNG output.
type Options struct {
	Flip       bool
	SquareSize int
	LastMove   *board.Move
	Selected   *board.Square
	Caption    string
}

func (o Options) squareSize() int {
	if o.SquareSize <= 0 {
		return defaultSquareSize
	}
	return o.SquareSize
}

const (
	svgLight     = "#e9cfa3"
	svgDark      = "#bb8860"
	svgLastMove  = "#ffe478"
	svgSelection = "#94cfff"
)

// SVG renders the board as standalone SVG markup. Each square is a rect
// carrying class, data-square and, when occupied, data-piece.
func SVG(b *board.Board, opts Options) []byte {
	size := opts.squareSize()
	total := size * board.Size

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, total, total, total, total)
	buf.WriteByte('\n')

	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			sq := displaySquare(i, j, opts.Flip)
			x, y := j*size, i*size
			fill := svgLight
			if SquareClass(sq) == ClassDark {
				fill = svgDark
			}
			p := b.At(sq)
			fmt.Fprintf(&buf, `<rect class="square %s" data-square="%s"`, SquareClass(sq), sq.Name())
			if !p.IsEmpty() {
				fmt.Fprintf(&buf, ` data-piece="%s"`, p.String())
			}
			fmt.Fprintf(&buf, ` x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, x, y, size, size, fill)
			buf.WriteByte('\n')

			if overlay := overlayFill(sq, opts); overlay != "" {
				fmt.Fprintf(&buf, `<rect class="highlight" x="%d" y="%d" width="%d" height="%d" fill="%s" fill-opacity="0.55"/>`, x, y, size, size, overlay)
				buf.WriteByte('\n')
			}
			if !p.IsEmpty() {
				fmt.Fprintf(&buf, `<text class="piece" x="%d" y="%d" font-size="%d" text-anchor="middle" dominant-baseline="central">%s</text>`,
					x+size/2, y+size/2, size*3/4, html.EscapeString(p.Glyph()))
				buf.WriteByte('\n')
			}
		}
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func overlayFill(sq board.Square, opts Options) string {
	if opts.Selected != nil && *opts.Selected == sq {
		return svgSelection
	}
	if opts.LastMove != nil && (opts.LastMove.From == sq || opts.LastMove.To == sq) {
		return svgLastMove
	}
	return ""
}
