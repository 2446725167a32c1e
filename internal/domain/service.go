// Package domain defines the business logic for workout ingestion and analytics.
package domain

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/workoutlog/internal/analytics"
	"example.com/workoutlog/internal/logparse"
	"example.com/workoutlog/internal/observability"
)

const (
	// WeekLength is the number of days in a weekly series.
	WeekLength = 7
	// LeaderboardLimit caps the number of leaderboard entries.
	LeaderboardLimit = 50

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Aggregate views are computed by the analytics package.
type (
	DailySummary     = analytics.DailySummary
	CategoryTotal    = analytics.CategoryTotal
	LeaderboardEntry = analytics.LeaderboardEntry
)

// WriteMode selects how a parsed submission is persisted.
type WriteMode string

const (
	// WriteModeSequential inserts records one at a time. A failure part way
	// through leaves the earlier records stored.
	WriteModeSequential WriteMode = "sequential"
	// WriteModeAtomic stores the whole submission in one batch when the
	// repository supports it.
	WriteModeAtomic WriteMode = "atomic"
)

// ParseWriteMode maps a configuration value to a WriteMode.
func ParseWriteMode(value string) (WriteMode, error) {
	switch WriteMode(strings.ToLower(strings.TrimSpace(value))) {
	case WriteModeSequential, "":
		return WriteModeSequential, nil
	case WriteModeAtomic:
		return WriteModeAtomic, nil
	default:
		return "", errors.New("write mode must be sequential or atomic")
	}
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWriteMode selects sequential or atomic ingestion writes.
func WithWriteMode(mode WriteMode) Option {
	return func(s *Service) {
		s.writeMode = mode
	}
}

// Service orchestrates ingestion and analytics workflows.
type Service struct {
	repo      WorkoutRepository
	loc       *time.Location
	now       func() time.Time
	writeMode WriteMode
}

// NewService constructs a Service.
func NewService(repo WorkoutRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		loc:       time.UTC,
		now:       time.Now,
		writeMode: WriteModeSequential,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the time zone used for day boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Today returns midnight of the current day in the service location.
func (s *Service) Today() time.Time {
	return analytics.DayStart(s.now(), s.loc)
}

// IngestInput captures one raw submission from the API layer.
type IngestInput struct {
	OwnerID string
	Text    string
	// OccurredAt stamps every record; zero means the ingestion time.
	OccurredAt time.Time
}

// IngestWorkouts parses a submission, derives calories and persists the
// records. Parse failures are returned unchanged and nothing is written. On a
// storage failure the records already written are returned along with a
// *StorageError.
func (s *Service) IngestWorkouts(ctx context.Context, input IngestInput) ([]Workout, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}

	entries, err := logparse.Parse(input.Text)
	if err != nil {
		observability.RecordSubmissionRejected(rejectionReason(err))
		return nil, err
	}

	now := s.now().UTC()
	occurredAt := input.OccurredAt.UTC()
	if input.OccurredAt.IsZero() {
		occurredAt = now
	}

	workouts := make([]Workout, 0, len(entries))
	for i, entry := range entries {
		kcal, err := Calories(entry.DurationMin, entry.WeightKg)
		if err != nil {
			observability.RecordSubmissionRejected("calories")
			return nil, &logparse.MalformedSubmissionError{
				Record: i + 1,
				Field:  logparse.FieldRecord,
				Reason: err.Error(),
			}
		}
		workouts = append(workouts, Workout{
			ID:             uuid.NewString(),
			OwnerID:        input.OwnerID,
			Category:       entry.Category,
			Name:           entry.Name,
			Sets:           entry.Sets,
			Reps:           entry.Reps,
			WeightKg:       entry.WeightKg,
			DurationMin:    entry.DurationMin,
			CaloriesBurned: kcal,
			OccurredAt:     occurredAt,
			CreatedAt:      now,
		})
	}

	persisted, err := s.persist(ctx, workouts)
	observability.RecordWorkoutsIngested(len(persisted))
	if err != nil {
		observability.RecordSubmissionRejected("storage")
		return persisted, err
	}
	return persisted, nil
}

func (s *Service) persist(ctx context.Context, workouts []Workout) ([]Workout, error) {
	if s.writeMode == WriteModeAtomic {
		if batch, ok := s.repo.(BatchInserter); ok {
			if err := batch.InsertBatch(ctx, workouts); err != nil {
				return nil, &StorageError{Op: "insert workout batch", Err: err}
			}
			return workouts, nil
		}
	}

	for i, workout := range workouts {
		if err := s.repo.Insert(ctx, workout); err != nil {
			return slices.Clone(workouts[:i]), &StorageError{Op: "insert workout", Persisted: i, Err: err}
		}
	}
	return workouts, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, logparse.ErrNoCategoriesFound):
		return "no_categories"
	case errors.Is(err, logparse.ErrMalformedSubmission):
		return "malformed"
	default:
		return "unknown"
	}
}

// DailySummary aggregates an owner's workouts for the calendar day containing day.
func (s *Service) DailySummary(ctx context.Context, ownerID string, day time.Time) (DailySummary, error) {
	defer observability.ObserveQuery("daily_summary", time.Now())

	start, end := analytics.DayWindow(day, s.loc)
	workouts, err := s.repo.ListByOwnerRange(ctx, ownerID, start, end)
	if err != nil {
		return DailySummary{}, &StorageError{Op: "list workouts", Err: err}
	}
	return analytics.Summarize(ownerID, start, s.loc, toSamples(workouts)), nil
}

// WeeklySeries returns seven daily summaries ending on endDay, oldest first.
func (s *Service) WeeklySeries(ctx context.Context, ownerID string, endDay time.Time) ([]DailySummary, error) {
	defer observability.ObserveQuery("weekly_series", time.Now())

	last, end := analytics.DayWindow(endDay, s.loc)
	start := last.AddDate(0, 0, -(WeekLength - 1))
	workouts, err := s.repo.ListByOwnerRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, &StorageError{Op: "list workouts", Err: err}
	}
	return analytics.Series(ownerID, last, WeekLength, s.loc, toSamples(workouts)), nil
}

// UpdateAccount registers or refreshes the display fields of an owner. An
// empty display name falls back to the owner id.
func (s *Service) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	account.ID = strings.TrimSpace(account.ID)
	if account.ID == "" {
		return Account{}, ErrOwnerRequired
	}
	account.DisplayName = strings.TrimSpace(account.DisplayName)
	if account.DisplayName == "" {
		account.DisplayName = account.ID
	}
	account.AvatarURL = strings.TrimSpace(account.AvatarURL)

	directory, ok := s.repo.(AccountDirectory)
	if !ok {
		return Account{}, ErrNoAccountDirectory
	}
	if err := directory.UpsertAccount(ctx, account); err != nil {
		return Account{}, &StorageError{Op: "upsert account", Err: err}
	}
	return account, nil
}

// Leaderboard ranks every known account by calories burned on the day of day.
func (s *Service) Leaderboard(ctx context.Context, day time.Time) ([]LeaderboardEntry, error) {
	defer observability.ObserveQuery("leaderboard", time.Now())

	start, end := analytics.DayWindow(day, s.loc)
	totals, err := s.repo.DailyTotals(ctx, start, end, LeaderboardLimit)
	if err != nil {
		return nil, &StorageError{Op: "daily totals", Err: err}
	}

	entries := make([]LeaderboardEntry, 0, len(totals))
	for _, total := range totals {
		entries = append(entries, LeaderboardEntry{
			OwnerID:      total.Account.ID,
			DisplayName:  total.Account.DisplayName,
			AvatarURL:    total.Account.AvatarURL,
			DailyXP:      total.TotalCalories,
			WorkoutCount: total.WorkoutCount,
		})
	}
	return analytics.Rank(entries, LeaderboardLimit), nil
}

// Dashboard bundles the views rendered on an owner's dashboard.
type Dashboard struct {
	Today  DailySummary   `json:"today"`
	Weekly []DailySummary `json:"weekly"`
}

// Dashboard returns the day's summary together with the week ending that day.
// Both views are computed from a single range read.
func (s *Service) Dashboard(ctx context.Context, ownerID string, day time.Time) (Dashboard, error) {
	defer observability.ObserveQuery("dashboard", time.Now())

	last, end := analytics.DayWindow(day, s.loc)
	start := last.AddDate(0, 0, -(WeekLength - 1))
	workouts, err := s.repo.ListByOwnerRange(ctx, ownerID, start, end)
	if err != nil {
		return Dashboard{}, &StorageError{Op: "list workouts", Err: err}
	}
	samples := toSamples(workouts)
	return Dashboard{
		Today:  analytics.Summarize(ownerID, last, s.loc, samples),
		Weekly: analytics.Series(ownerID, last, WeekLength, s.loc, samples),
	}, nil
}

// WorkoutsForDay lists an owner's workouts on the day of day with their calorie total.
func (s *Service) WorkoutsForDay(ctx context.Context, ownerID string, day time.Time) ([]Workout, float64, error) {
	start, end := analytics.DayWindow(day, s.loc)
	workouts, err := s.repo.ListByOwnerRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, 0, &StorageError{Op: "list workouts", Err: err}
	}
	total := 0.0
	for _, w := range workouts {
		total += w.CaloriesBurned
	}
	return workouts, total, nil
}

// ListWorkouts pages through an owner's history, newest first. The limit is
// clamped to [1, MaxPageSize] with DefaultPageSize for non-positive values.
func (s *Service) ListWorkouts(ctx context.Context, ownerID string, cursor *Cursor, limit int) ([]Workout, *Cursor, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	workouts, next, err := s.repo.ListByOwner(ctx, ownerID, cursor, limit)
	if err != nil {
		return nil, nil, &StorageError{Op: "list history", Err: err}
	}
	return workouts, next, nil
}

func toSamples(workouts []Workout) []analytics.Sample {
	samples := make([]analytics.Sample, 0, len(workouts))
	for _, w := range workouts {
		samples = append(samples, analytics.Sample{
			OccurredAt: w.OccurredAt,
			Category:   w.Category,
			Calories:   w.CaloriesBurned,
		})
	}
	return samples
}
