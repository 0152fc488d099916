package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"
	"sync"

	"github.com/park285/chessboard-demo/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	pngMargin        = 20
	pngCaptionHeight = 24
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	selectionFill   = color.NRGBA{R: 148, G: 207, B: 255, A: 150}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	coordinateColor = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	whiteLetter     = color.NRGBA{R: 30, G: 30, B: 30, A: 255}
	blackLetter     = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
)

// tokenSVG is the disc drawn under each piece letter.
const tokenSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<circle cx="50" cy="50" r="38" fill="%s" stroke="%s" stroke-width="5"/>
</svg>`

type tokenKey struct {
	side board.Side
	size int
}

var (
	tokenCache   = map[tokenKey]image.Image{}
	tokenCacheMu sync.RWMutex
)

// PNG rasterises the board with coordinates and highlights.
func PNG(ctx context.Context, b *board.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	size := opts.squareSize()
	boardSize := size * board.Size
	top := pngMargin
	if strings.TrimSpace(opts.Caption) != "" {
		top += pngCaptionHeight
	}
	origin := image.Point{X: pngMargin, Y: top}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+pngMargin*2, boardSize+top+pngMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			sq := displaySquare(i, j, opts.Flip)
			rect := image.Rect(origin.X+j*size, origin.Y+i*size, origin.X+(j+1)*size, origin.Y+(i+1)*size)
			clr := lightSquare
			if SquareClass(sq) == ClassDark {
				clr = darkSquare
			}
			imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)
			if overlay := overlayColor(sq, opts); overlay != nil {
				imagedraw.Draw(img, rect, image.NewUniform(overlay), image.Point{}, imagedraw.Over)
			}

			p := b.At(sq)
			if p.IsEmpty() {
				continue
			}
			token, err := renderToken(p.Side(), size)
			if err != nil {
				return nil, err
			}
			imagedraw.Draw(img, rect, token, image.Point{}, imagedraw.Over)
			letterColor := whiteLetter
			if p.Side() == board.Black {
				letterColor = blackLetter
			}
			drawCentered(drawer, rect, strings.ToUpper(p.String()), letterColor)
		}
	}

	drawCoordinates(drawer, origin, size, opts.Flip)
	if caption := strings.TrimSpace(opts.Caption); caption != "" {
		drawCentered(drawer, image.Rect(origin.X, pngMargin/2, origin.X+boardSize, pngMargin/2+pngCaptionHeight), caption, coordinateColor)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func overlayColor(sq board.Square, opts Options) color.Color {
	switch overlayFill(sq, opts) {
	case svgSelection:
		return selectionFill
	case svgLastMove:
		return lastMoveFill
	default:
		return nil
	}
}

func renderToken(side board.Side, size int) (image.Image, error) {
	key := tokenKey{side: side, size: size}
	tokenCacheMu.RLock()
	if img, ok := tokenCache[key]; ok {
		tokenCacheMu.RUnlock()
		return img, nil
	}
	tokenCacheMu.RUnlock()

	fill, stroke := "#f8f8f8", "#303030"
	if side == board.Black {
		fill, stroke = "#303030", "#f8f8f8"
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(fmt.Sprintf(tokenSVG, fill, stroke)))
	if err != nil {
		return nil, fmt.Errorf("parse token svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	tokenCacheMu.Lock()
	tokenCache[key] = img
	tokenCacheMu.Unlock()
	return img, nil
}

func drawCoordinates(drawer *font.Drawer, origin image.Point, size int, flip bool) {
	ascent := drawer.Face.Metrics().Ascent.Ceil()
	drawer.Src = image.NewUniform(coordinateColor)
	for i := 0; i < board.Size; i++ {
		sq := displaySquare(i, i, flip)
		rank := sq.Name()[1:]
		file := sq.Name()[:1]

		y := origin.Y + i*size + size/2 + ascent/2
		drawer.Dot = fixed.P(origin.X-pngMargin/2-3, y)
		drawer.DrawString(rank)

		x := origin.X + i*size + size/2 - 3
		drawer.Dot = fixed.P(x, origin.Y+board.Size*size+ascent+2)
		drawer.DrawString(file)
	}
}

func drawCentered(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}
