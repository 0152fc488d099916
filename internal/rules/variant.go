package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/park285/chessboard-demo/internal/board"
	"github.com/park285/chessboard-demo/internal/game"
	yaml "gopkg.in/yaml.v3"
)

const (
	VariantScripted = "scripted"
	VariantStandard = "standard"
)

var ErrUnknownVariant = errors.New("unknown rules variant")

// Scripts holds one scripted move table per side.
type Scripts struct {
	White []board.Move `yaml:"white"`
	Black []board.Move `yaml:"black"`
}

// DefaultScripts are Scholar's mate for white and Fool's mate for black.
func DefaultScripts() Scripts {
	return Scripts{
		White: []board.Move{
			board.MustMove("e2e4"),
			board.MustMove("f1c4"),
			board.MustMove("d1h5"),
			board.MustMove("h5f7"),
		},
		Black: []board.Move{
			board.MustMove("e7e5"),
			board.MustMove("d8h4"),
		},
	}
}

func (s Scripts) For(side board.Side) []board.Move {
	if side == board.Black {
		return s.Black
	}
	return s.White
}

// LoadScripts reads a YAML file with `white:` and `black:` move lists. A side
// missing from the file keeps its default table.
func LoadScripts(path string) (Scripts, error) {
	out := DefaultScripts()
	if strings.TrimSpace(path) == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scripts{}, fmt.Errorf("read script file: %w", err)
	}
	var doc struct {
		White []string `yaml:"white"`
		Black []string `yaml:"black"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Scripts{}, fmt.Errorf("parse script file: %w", err)
	}
	if doc.White != nil {
		if out.White, err = parseMoves(doc.White); err != nil {
			return Scripts{}, fmt.Errorf("white script: %w", err)
		}
	}
	if doc.Black != nil {
		if out.Black, err = parseMoves(doc.Black); err != nil {
			return Scripts{}, fmt.Errorf("black script: %w", err)
		}
	}
	return out, nil
}

func parseMoves(in []string) ([]board.Move, error) {
	out := make([]board.Move, 0, len(in))
	for _, s := range in {
		mv, err := board.ParseMove(s)
		if err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, nil
}

func NormalizeVariant(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// New builds the rule set for a variant. The scripted table follows the
// player's side.
func New(variant string, player board.Side, scripts Scripts) (game.Rules, error) {
	switch NormalizeVariant(variant) {
	case VariantScripted:
		return NewScripted(player, scripts.For(player)), nil
	case VariantStandard:
		return Standard{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}
