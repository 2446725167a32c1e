// Package logparse turns free-form workout submissions into structured entries.
//
// A submission is a list of records separated by ';'. Every record is exactly
// five lines:
//
//	#Legs
//	-Back Squat
//	-4setsX10reps
//	-60kg
//	-12min
package logparse

import (
	"errors"
	"fmt"
	"strings"
)

const (
	recordSeparator = ";"
	linesPerRecord  = 5

	categoryMarker = "#"
	fieldMarker    = "-"
)

var (
	// ErrMalformedSubmission is matched by every *MalformedSubmissionError.
	ErrMalformedSubmission = errors.New("malformed submission")
	// ErrNoCategoriesFound is returned when the submission has no '#' line at all.
	ErrNoCategoriesFound = errors.New("no categories found in workout string")
)

// Entry is one parsed exercise record before calories and ownership are applied.
type Entry struct {
	Category    string
	Name        string
	Sets        int
	Reps        int
	WeightKg    float64
	DurationMin float64
}

// Field names the part of a record that failed to parse.
type Field string

const (
	FieldRecord   Field = "record"
	FieldCategory Field = "category"
	FieldName     Field = "name"
	FieldSetsReps Field = "sets_reps"
	FieldWeight   Field = "weight"
	FieldDuration Field = "duration"
)

// MalformedSubmissionError reports the first record that violates the grammar.
type MalformedSubmissionError struct {
	// Record is the 1-based ordinal of the failing record.
	Record int
	// Line is the 1-based line within the record, or 0 when the record shape is wrong.
	Line   int
	Field  Field
	Reason string
}

func (e *MalformedSubmissionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("record %d, line %d (%s): %s", e.Record, e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("record %d: %s", e.Record, e.Reason)
}

// Is lets errors.Is match ErrMalformedSubmission.
func (e *MalformedSubmissionError) Is(target error) bool {
	return target == ErrMalformedSubmission
}

// Parse splits text into records and lexes each one. It stops at the first
// invalid record and never returns a partial list.
func Parse(text string) ([]Entry, error) {
	pieces := strings.Split(text, recordSeparator)
	if !hasCategoryLine(pieces) {
		return nil, ErrNoCategoriesFound
	}

	entries := make([]Entry, 0, len(pieces))
	for i, piece := range pieces {
		entry, err := parseRecord(i+1, strings.TrimSpace(piece))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func hasCategoryLine(pieces []string) bool {
	for _, piece := range pieces {
		for _, line := range strings.Split(piece, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), categoryMarker) {
				return true
			}
		}
	}
	return false
}

func parseRecord(ordinal int, piece string) (Entry, error) {
	lines := strings.Split(piece, "\n")
	if len(lines) != linesPerRecord {
		return Entry{}, &MalformedSubmissionError{
			Record: ordinal,
			Field:  FieldRecord,
			Reason: fmt.Sprintf("expected %d lines, got %d", linesPerRecord, len(lines)),
		}
	}

	lx := newRecordLexer(ordinal)
	for _, line := range lines {
		if err := lx.feed(strings.TrimSpace(line)); err != nil {
			return Entry{}, err
		}
	}
	return lx.entry, nil
}
