// Package cli implements the workoutctl commands over a local SQLite store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"example.com/workoutlog/internal/analytics"
	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/persistence/sqlite"
)

// CLI is the kong grammar for workoutctl.
type CLI struct {
	DB       string `help:"SQLite database path." default:"workouts.db" env:"WORKOUTLOG_DB" type:"path"`
	TimeZone string `name:"tz" help:"Time zone that defines calendar days." default:"UTC" env:"TIME_ZONE"`
	JSON     bool   `help:"Print JSON instead of tables."`

	Parse       ParseCmd       `cmd:"" help:"Validate a workout submission without storing it."`
	Ingest      IngestCmd      `cmd:"" help:"Parse and store a workout submission."`
	Summary     SummaryCmd     `cmd:"" help:"Show an owner's daily summary and weekly series."`
	Leaderboard LeaderboardCmd `cmd:"" help:"Rank owners by calories burned on a day."`
	Account     AccountCmd     `cmd:"" help:"Set the name and avatar shown for an owner on the leaderboard."`
	Token       TokenCmd       `cmd:"" help:"Mint a development bearer token for the API."`
}

// Context is passed to every command's Run method.
type Context struct {
	Ctx      context.Context
	DBPath   string
	Location *time.Location
	JSON     bool
	Out      io.Writer
	Stdin    io.Reader
	Now      func() time.Time
}

// NewContext builds the command context from parsed global flags.
func (c *CLI) NewContext(ctx context.Context, out io.Writer, stdin io.Reader) (*Context, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return &Context{
		Ctx:      ctx,
		DBPath:   c.DB,
		Location: loc,
		JSON:     c.JSON,
		Out:      out,
		Stdin:    stdin,
		Now:      time.Now,
	}, nil
}

// Run parses args with kong and executes the selected command.
func Run(ctx context.Context, args []string, out, errOut io.Writer, stdin io.Reader) error {
	var grammar CLI
	parser, err := kong.New(&grammar,
		kong.Name("workoutctl"),
		kong.Description("Parse, store and analyse workout logs."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(out, errOut),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	appCtx, err := grammar.NewContext(ctx, out, stdin)
	if err != nil {
		return err
	}
	return kctx.Run(appCtx)
}

func (c *Context) openService(opts ...domain.Option) (*domain.Service, func(), error) {
	store, err := sqlite.Open(c.Ctx, c.DBPath)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]domain.Option{domain.WithLocation(c.Location), domain.WithClock(c.Now)}, opts...)
	return domain.NewService(store, opts...), func() { _ = store.Close() }, nil
}

// readInput returns the contents of path, or stdin when path is empty or "-".
func (c *Context) readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(c.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// day resolves a YYYY-MM-DD flag in the context location, defaulting to today.
func (c *Context) day(raw string) (time.Time, error) {
	if raw == "" {
		return analytics.DayStart(c.Now(), c.Location), nil
	}
	day, err := time.ParseInLocation(analytics.DayLabelLayout, raw, c.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return day, nil
}

func (c *Context) printJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
