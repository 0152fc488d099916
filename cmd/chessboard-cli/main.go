package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/chessboard-demo/internal/boardclient"
	"github.com/park285/chessboard-demo/internal/msgcat"
	"github.com/park285/chessboard-demo/pkg/boarddto"
)

const usage = `usage: chessboard-cli [-server URL] <command> [args]

commands:
  start [-variant scripted|standard] [-side white|black]
  view <id>
  click <id> <square>
  move <id> <from><to>
  suggest <id>
  reset <id> [-side white|black]
  delete <id>
  games [id]
  png <id> <file>
  watch <id>`

func main() {
	log.SetFlags(0)
	server := flag.String("server", envDefault("BOARD_SERVER_URL", "http://127.0.0.1:8080"), "board server base URL")
	timeout := flag.Duration("timeout", 8*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := boardclient.NewClient(*server, boardclient.WithTimeout(*timeout))
	cat := msgcat.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client, cat, args[0], args[1:]); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func run(ctx context.Context, c *boardclient.Client, cat *msgcat.Catalog, cmd string, args []string) error {
	switch cmd {
	case "start":
		fs := flag.NewFlagSet("start", flag.ExitOnError)
		variant := fs.String("variant", "", "board variant")
		side := fs.String("side", "", "side to play")
		_ = fs.Parse(args)
		view, err := c.Start(ctx, *variant, *side)
		if err != nil {
			return err
		}
		fmt.Println(cat.Text("cli.started", map[string]string{"ID": view.ID, "Variant": view.Variant, "Side": view.Player}))
		printView(view)
	case "view":
		id, err := need(args, 1)
		if err != nil {
			return err
		}
		view, err := c.View(ctx, id[0])
		if err != nil {
			return err
		}
		printView(view)
	case "click", "move":
		a, err := need(args, 2)
		if err != nil {
			return err
		}
		var resp *boarddto.EventResponse
		if cmd == "click" {
			resp, err = c.Click(ctx, a[0], a[1])
		} else {
			resp, err = c.Move(ctx, a[0], a[1])
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", resp.Transition, resp.Message)
		printView(resp.View)
	case "suggest":
		id, err := need(args, 1)
		if err != nil {
			return err
		}
		view, err := c.Suggest(ctx, id[0])
		if err != nil {
			return err
		}
		fmt.Println(view.Suggestion.Text)
	case "reset":
		id, err := need(args, 1)
		if err != nil {
			return err
		}
		fs := flag.NewFlagSet("reset", flag.ExitOnError)
		side := fs.String("side", "", "side to play")
		_ = fs.Parse(args[1:])
		view, err := c.Reset(ctx, id[0], *side)
		if err != nil {
			return err
		}
		printView(view)
	case "delete":
		id, err := need(args, 1)
		if err != nil {
			return err
		}
		return c.Delete(ctx, id[0])
	case "games":
		var list *boarddto.GameList
		var err error
		if len(args) > 0 {
			list, err = c.SessionGames(ctx, args[0])
		} else {
			list, err = c.RecentGames(ctx, 0)
		}
		if err != nil {
			return err
		}
		for _, g := range list.Games {
			fmt.Printf("%s #%d %-9s %-9s %s (%d moves)\n", g.SessionID, g.GameNo, g.Variant, g.Result, g.Method, len(g.Moves))
		}
	case "png":
		a, err := need(args, 2)
		if err != nil {
			return err
		}
		body, err := c.BoardPNG(ctx, a[0], 0)
		if err != nil {
			return err
		}
		return os.WriteFile(a[1], body, 0o644)
	case "watch":
		id, err := need(args, 1)
		if err != nil {
			return err
		}
		fmt.Println(cat.Text("cli.watching", map[string]string{"ID": id[0]}))
		w := c.Watcher(id[0])
		err = w.Watch(ctx, func(u boarddto.Update) {
			if u.Error != nil {
				fmt.Printf("error: %s\n", u.Error.Message)
				return
			}
			fmt.Printf("-- %s %s\n", u.Reason, u.Message)
			if u.View != nil {
				printView(u.View)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}

func need(args []string, n int) ([]string, error) {
	if len(args) < n {
		return nil, fmt.Errorf("expected %d argument(s)\n%s", n, usage)
	}
	return args[:n], nil
}

// printView draws the cells as text in display order, eight per row.
func printView(v *boarddto.SessionView) {
	if v == nil {
		return
	}
	var b strings.Builder
	for i, cell := range v.Cells {
		mark := cell.Glyph
		if mark == "" {
			mark = "·"
		}
		if cell.Square == v.Selected {
			mark = "[" + mark + "]"
		} else {
			mark = " " + mark + " "
		}
		b.WriteString(mark)
		if i%8 == 7 {
			b.WriteByte('\n')
		}
	}
	fmt.Print(b.String())
	fmt.Printf("%s | turn %s | game %d\n", v.Status, v.Turn, v.GameNo)
	if v.Suggestion.Text != "" {
		fmt.Printf("hint: %s\n", v.Suggestion.Text)
	}
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
