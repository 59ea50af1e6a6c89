// Command client plays tic-tac-toe against the game server from a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"tictactoe-client/internal/cache"
	"tictactoe-client/internal/client"
	"tictactoe-client/internal/config"
	"tictactoe-client/internal/credentials"
	"tictactoe-client/internal/game"
	"tictactoe-client/internal/models"
	"tictactoe-client/internal/session"
	"tictactoe-client/internal/stats"
	"tictactoe-client/internal/telemetry"
)

const usage = `usage: client <command> [flags]

commands:
  register  -name NAME -email EMAIL [-password PASSWORD]
  login     -email EMAIL [-password PASSWORD]
  logout
  whoami
  stats
  play      [-engine-first] [-new]
`

type app struct {
	cfg       *config.Config
	api       *client.Client
	repo      *session.Repository
	endpoints client.Endpoints
	in        *bufio.Reader
	out       io.Writer
}

func main() {
	os.Exit(start())
}

// start runs the command and returns the process exit code, so deferred
// cleanup runs before exiting.
func start() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.Setup(ctx, "tictactoe-client", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(context.Background())

	store, closeStore, err := credentials.Open(ctx, cfg)
	if err != nil {
		log.Printf("Failed to open credential store: %v", err)
		return 1
	}
	defer closeStore()

	repo := session.NewRepository(store)
	opts := []client.Option{
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithTokenSource(repo),
	}
	if cfg.Debug {
		opts = append(opts, client.WithLogger(log.Default()))
	}
	api, err := client.New(cfg.BaseURL, opts...)
	if err != nil {
		log.Printf("Invalid server address: %v", err)
		return 1
	}

	a := &app{
		cfg:       cfg,
		api:       api,
		repo:      repo,
		endpoints: client.DefaultEndpoints(),
		in:        bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if client.IsUnauthorized(err) {
			if err := a.expire(ctx); err != nil {
				log.Printf("Failed to clear session: %v", err)
			}
			fmt.Fprintln(os.Stderr, "Your session has expired. Please log in again.")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "stats":
		return a.stats(ctx)
	case "play":
		return a.play(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = a.prompt("Password: ")
	}

	us, err := session.NewAuthService(a.api, a.repo, a.endpoints).Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", us.User.Name)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = a.prompt("Password: ")
	}

	us, err := session.NewAuthService(a.api, a.repo, a.endpoints).Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", us.User.Name)
	return nil
}

// logout ends the session and drops the user's cached game so the next
// login starts clean.
func (a *app) logout(ctx context.Context) error {
	user, known := a.repo.StoredUser(ctx)
	if err := session.NewAuthService(a.api, a.repo, a.endpoints).Logout(ctx); err != nil {
		return err
	}
	if !known {
		return nil
	}
	return a.forgetGame(ctx, user.ID)
}

// expire is the forced logout after the server rejected the token.
func (a *app) expire(ctx context.Context) error {
	if user, ok := a.repo.StoredUser(ctx); ok {
		if err := a.forgetGame(ctx, user.ID); err != nil {
			log.Printf("Failed to forget cached game: %v", err)
		}
	}
	return a.repo.Terminate(ctx)
}

func (a *app) forgetGame(ctx context.Context, userID int) error {
	sessions, err := cache.Open(a.cfg.CachePath)
	if err != nil {
		return err
	}
	defer sessions.Close()
	return sessions.Forget(ctx, userID)
}

func (a *app) whoami(ctx context.Context) error {
	us, ok := a.repo.CurrentSession(ctx)
	if !ok {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> (id %d)\n", us.User.Name, us.User.Email, us.User.ID)
	return nil
}

func (a *app) stats(ctx context.Context) error {
	if _, ok := a.repo.CurrentSession(ctx); !ok {
		return errors.New("not logged in")
	}
	s, err := stats.NewQuery(a.api, a.endpoints).Fetch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Games: %d  Wins: %d  Losses: %d  Draws: %d\n",
		s.Total(), s.WinCount(), s.LossCount(), s.DrawCount())
	return nil
}

func (a *app) play(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	engineFirst := fs.Bool("engine-first", false, "let the engine open the game")
	fresh := fs.Bool("new", false, "start a new game instead of resuming the last one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	us, ok := a.repo.CurrentSession(ctx)
	if !ok {
		return errors.New("not logged in")
	}

	sessions, err := cache.Open(a.cfg.CachePath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	ctrl := game.NewController(
		game.NewService(a.api, a.endpoints),
		game.WithPacing(game.Pacing{Min: a.cfg.EngineDelayMin, Max: a.cfg.EngineDelayMax}),
		game.WithRecorder(sessions.ForUser(us.UserID())),
	)
	unsubscribe := ctrl.Subscribe(func(ev game.Event) {
		switch ev.Kind {
		case game.EventOutcome:
			fmt.Fprintln(a.out, ev.Outcome.Message)
		case game.EventError:
			fmt.Fprintf(a.out, "! %v\n", ev.Err)
		}
	})
	defer unsubscribe()

	// A rejected token ends the local game along with the session.
	fail := func(err error) error {
		if client.IsUnauthorized(err) {
			ctrl.Reset(ctx)
		}
		return err
	}

	if err := a.startOrResume(ctx, ctrl, sessions, us.UserID(), *engineFirst, *fresh); err != nil {
		return fail(err)
	}

	for {
		snap := ctrl.Snapshot()
		fmt.Fprint(a.out, renderBoard(snap.Session.Board))

		if snap.State == game.StateTerminal {
			if !a.confirm("Play again? [y/N] ") {
				return nil
			}
			if err := ctrl.StartNewGame(ctx, !*engineFirst); err != nil && client.IsUnauthorized(err) {
				return fail(err)
			}
			continue
		}

		if snap.Session.CurrentPlayer == game.Human.Opponent() && !snap.EngineInFlight {
			if strings.ToLower(a.prompt("The engine did not answer. Retry? [Y/n] ")) == "n" {
				return nil
			}
			if err := ctrl.RetryEngineMove(ctx); err != nil {
				if client.IsUnauthorized(err) || errors.Is(err, context.Canceled) {
					return fail(err)
				}
			}
			continue
		}

		line := a.prompt("Your move (row col, q to quit): ")
		if line == "q" || line == "" {
			return nil
		}
		row, col, err := parseMove(line)
		if err != nil {
			fmt.Fprintln(a.out, err)
			continue
		}
		if err := ctrl.SubmitMove(ctx, row, col); err != nil {
			if client.IsUnauthorized(err) || errors.Is(err, context.Canceled) {
				return fail(err)
			}
		}
	}
}

// startOrResume picks up the last ongoing game unless fresh is set.
func (a *app) startOrResume(ctx context.Context, ctrl *game.Controller, sessions *cache.Cache, userID int, engineFirst, fresh bool) error {
	if !fresh {
		last, ok, err := sessions.LastSession(ctx, userID)
		if err != nil {
			log.Printf("Failed to read resume cache: %v", err)
		}
		if ok && last.Status == models.StatusOngoing {
			fmt.Fprintf(a.out, "Resuming game %d.\n", last.ID)
			err := ctrl.Resume(ctx, last.ID)
			if err == nil {
				return nil
			}
			if client.IsUnauthorized(err) {
				return err
			}
			fmt.Fprintln(a.out, "Could not resume; starting a new game.")
		}
	}
	return ctrl.StartNewGame(ctx, !engineFirst)
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *app) confirm(label string) bool {
	answer := strings.ToLower(a.prompt(label))
	return answer == "y" || answer == "yes"
}

func parseMove(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, errors.New("enter a row and a column, e.g. 1 2")
	}
	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad row %q", fields[0])
	}
	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad column %q", fields[1])
	}
	return row, col, nil
}

func renderBoard(b models.Board) string {
	if b == nil {
		b = models.NewBoard()
	}
	var sb strings.Builder
	sb.WriteString("\n    0   1   2\n")
	for i, row := range b {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(" ")
		for j, v := range row {
			sb.WriteString(" ")
			sb.WriteString(cellString(v))
			if j < len(row)-1 {
				sb.WriteString(" |")
			}
		}
		sb.WriteString("\n")
		if i < len(b)-1 {
			sb.WriteString("  ---+---+---\n")
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

func cellString(v int) string {
	switch v {
	case models.CellX:
		return "X"
	case models.CellO:
		return "O"
	}
	return " "
}
