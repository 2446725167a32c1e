package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"example.com/workoutlog/internal/auth"
	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/logparse"
)

// ParseCmd validates a submission and prints the records it would store.
type ParseCmd struct {
	File string `arg:"" optional:"" help:"Submission file; stdin when omitted or -."`
}

func (c *ParseCmd) Run(ctx *Context) error {
	text, err := ctx.readInput(c.File)
	if err != nil {
		return err
	}
	entries, err := logparse.Parse(text)
	if err != nil {
		return describeParseError(err)
	}

	rows := make([]recordRow, 0, len(entries))
	for i, entry := range entries {
		kcal, err := domain.Calories(entry.DurationMin, entry.WeightKg)
		if err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		rows = append(rows, recordRow{
			Category: entry.Category, Name: entry.Name, Sets: entry.Sets, Reps: entry.Reps,
			WeightKg: entry.WeightKg, DurationMin: entry.DurationMin, Calories: kcal,
		})
	}
	if ctx.JSON {
		return ctx.printJSON(rows)
	}
	return printRecords(ctx, rows)
}

// IngestCmd stores a submission for an owner.
type IngestCmd struct {
	Owner  string `required:"" help:"Owner id the records belong to."`
	At     string `help:"RFC 3339 timestamp for every record; defaults to now."`
	Atomic bool   `help:"Store all records or none."`
	File   string `arg:"" optional:"" help:"Submission file; stdin when omitted or -."`
}

func (c *IngestCmd) Run(ctx *Context) error {
	text, err := ctx.readInput(c.File)
	if err != nil {
		return err
	}
	var occurredAt time.Time
	if c.At != "" {
		if occurredAt, err = time.Parse(time.RFC3339, c.At); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	mode := domain.WriteModeSequential
	if c.Atomic {
		mode = domain.WriteModeAtomic
	}
	svc, closeStore, err := ctx.openService(domain.WithWriteMode(mode))
	if err != nil {
		return err
	}
	defer closeStore()

	stored, err := svc.IngestWorkouts(ctx.Ctx, domain.IngestInput{OwnerID: c.Owner, Text: text, OccurredAt: occurredAt})
	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return fmt.Errorf("stored %d record(s) before failing: %w", storageErr.Persisted, err)
	}
	if err != nil {
		return describeParseError(err)
	}

	if ctx.JSON {
		return ctx.printJSON(stored)
	}
	total := 0.0
	for _, w := range stored {
		total += w.CaloriesBurned
	}
	fmt.Fprintf(ctx.Out, "stored %d workout(s) for %s, %.0f kcal\n", len(stored), c.Owner, total)
	return nil
}

// SummaryCmd prints an owner's dashboard.
type SummaryCmd struct {
	Owner string `required:"" help:"Owner id."`
	Date  string `help:"Day as YYYY-MM-DD; defaults to today."`
}

func (c *SummaryCmd) Run(ctx *Context) error {
	day, err := ctx.day(c.Date)
	if err != nil {
		return err
	}
	svc, closeStore, err := ctx.openService()
	if err != nil {
		return err
	}
	defer closeStore()

	dash, err := svc.Dashboard(ctx.Ctx, c.Owner, day)
	if err != nil {
		return err
	}
	if ctx.JSON {
		return ctx.printJSON(dash)
	}

	today := dash.Today
	fmt.Fprintf(ctx.Out, "%s  %s: %.0f kcal over %d workout(s), %.1f avg\n",
		today.Label, c.Owner, today.TotalCalories, today.WorkoutCount, today.AverageCalories)

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tKCAL\tSHARE")
	for _, cat := range today.Categories {
		fmt.Fprintf(tw, "%s\t%.0f\t%.0f%%\n", cat.Category, cat.Calories, cat.Share*100)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DAY\tKCAL\tWORKOUTS")
	for _, d := range dash.Weekly {
		fmt.Fprintf(tw, "%s\t%.0f\t%d\n", d.Label, d.TotalCalories, d.WorkoutCount)
	}
	return tw.Flush()
}

// LeaderboardCmd prints the ranking for a day.
type LeaderboardCmd struct {
	Date string `help:"Day as YYYY-MM-DD; defaults to today."`
}

func (c *LeaderboardCmd) Run(ctx *Context) error {
	day, err := ctx.day(c.Date)
	if err != nil {
		return err
	}
	svc, closeStore, err := ctx.openService()
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := svc.Leaderboard(ctx.Ctx, day)
	if err != nil {
		return err
	}
	if ctx.JSON {
		return ctx.printJSON(entries)
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tOWNER\tXP\tWORKOUTS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%.0f\t%d\n", e.Rank, e.DisplayName, e.DailyXP, e.WorkoutCount)
	}
	return tw.Flush()
}

// AccountCmd registers or renames an owner in the account directory.
type AccountCmd struct {
	Owner  string `required:"" help:"Owner id."`
	Name   string `help:"Display name; defaults to the owner id."`
	Avatar string `help:"Avatar URL."`
}

func (c *AccountCmd) Run(ctx *Context) error {
	svc, closeStore, err := ctx.openService()
	if err != nil {
		return err
	}
	defer closeStore()

	account, err := svc.UpdateAccount(ctx.Ctx, domain.Account{ID: c.Owner, DisplayName: c.Name, AvatarURL: c.Avatar})
	if err != nil {
		return err
	}
	if ctx.JSON {
		return ctx.printJSON(account)
	}
	fmt.Fprintf(ctx.Out, "account %s shown as %q\n", account.ID, account.DisplayName)
	return nil
}

// TokenCmd signs a bearer token accepted by the API.
type TokenCmd struct {
	Subject string        `arg:"" help:"Owner id placed in the sub claim."`
	Scopes  []string      `help:"Scopes to grant." default:"workouts:read,workouts:write"`
	TTL     time.Duration `help:"Token lifetime." default:"24h"`
	Secret  string        `help:"HMAC signing secret." env:"JWT_SECRET" default:"dev-secret-change-me"`
	Issuer  string        `help:"Issuer claim." env:"JWT_ISSUER" default:"workoutlog.identity"`
}

func (c *TokenCmd) Run(ctx *Context) error {
	token, err := auth.Issue(auth.Config{Secret: c.Secret, Issuer: c.Issuer}, c.Subject, c.Scopes, c.TTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, token)
	return nil
}

type recordRow struct {
	Category    string  `json:"category"`
	Name        string  `json:"name"`
	Sets        int     `json:"sets"`
	Reps        int     `json:"reps"`
	WeightKg    float64 `json:"weight_kg"`
	DurationMin float64 `json:"duration_min"`
	Calories    float64 `json:"calories"`
}

func printRecords(ctx *Context, rows []recordRow) error {
	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCATEGORY\tEXERCISE\tSETSxREPS\tKG\tMIN\tKCAL")
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%g\t%g\t%.0f\n", i+1, r.Category, r.Name, r.Sets, r.Reps, r.WeightKg, r.DurationMin, r.Calories)
	}
	return tw.Flush()
}

func describeParseError(err error) error {
	var malformed *logparse.MalformedSubmissionError
	if errors.As(err, &malformed) {
		return fmt.Errorf("invalid submission at record %d: %w", malformed.Record, err)
	}
	if errors.Is(err, logparse.ErrNoCategoriesFound) {
		return fmt.Errorf("invalid submission: %w", err)
	}
	return err
}

