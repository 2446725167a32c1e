package logparse

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	setsToken    = "sets"
	setsRepsJoin = "X"
	repsToken    = "reps"
	weightUnit   = "kg"
	durationUnit = "min"
)

var (
	integerPattern = regexp.MustCompile(`^[0-9]+$`)
	decimalPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
)

type lexState int

const (
	stateCategory lexState = iota
	stateName
	stateSetsReps
	stateWeight
	stateDuration
	stateDone
)

func (s lexState) field() Field {
	switch s {
	case stateCategory:
		return FieldCategory
	case stateName:
		return FieldName
	case stateSetsReps:
		return FieldSetsReps
	case stateWeight:
		return FieldWeight
	case stateDuration:
		return FieldDuration
	default:
		return FieldRecord
	}
}

// recordLexer consumes the trimmed lines of one record in order.
type recordLexer struct {
	ordinal int
	line    int
	state   lexState
	entry   Entry
}

func newRecordLexer(ordinal int) *recordLexer {
	return &recordLexer{ordinal: ordinal, state: stateCategory}
}

func (lx *recordLexer) feed(line string) error {
	lx.line++
	if lx.state == stateDone {
		return lx.fail("unexpected line after duration")
	}

	marker := fieldMarker
	if lx.state == stateCategory {
		marker = categoryMarker
	}
	if !strings.HasPrefix(line, marker) {
		return lx.fail(fmt.Sprintf("line must start with %q", marker))
	}
	body := strings.TrimSpace(strings.TrimPrefix(line, marker))

	var err error
	switch lx.state {
	case stateCategory:
		if body == "" {
			err = errors.New("category name is empty")
		}
		lx.entry.Category = body
	case stateName:
		if body == "" {
			err = errors.New("workout name is empty")
		}
		lx.entry.Name = body
	case stateSetsReps:
		lx.entry.Sets, lx.entry.Reps, err = parseSetsReps(body)
	case stateWeight:
		lx.entry.WeightKg, err = parseQuantity(body, weightUnit)
	case stateDuration:
		lx.entry.DurationMin, err = parseQuantity(body, durationUnit)
	}
	if err != nil {
		return lx.fail(err.Error())
	}

	lx.state++
	return nil
}

func (lx *recordLexer) fail(reason string) error {
	return &MalformedSubmissionError{
		Record: lx.ordinal,
		Line:   lx.line,
		Field:  lx.state.field(),
		Reason: reason,
	}
}

// parseSetsReps reads "<int>setsX<int>reps". Whitespace around the numbers is allowed.
func parseSetsReps(body string) (int, int, error) {
	idx := strings.Index(body, setsToken)
	if idx < 0 {
		return 0, 0, fmt.Errorf("missing %q delimiter", setsToken)
	}
	setsRaw := body[:idx]
	rest := body[idx+len(setsToken):]

	if !strings.HasPrefix(rest, setsRepsJoin) {
		return 0, 0, fmt.Errorf("expected %q after %q", setsRepsJoin, setsToken)
	}
	rest = rest[len(setsRepsJoin):]

	idx = strings.Index(rest, repsToken)
	if idx < 0 {
		return 0, 0, fmt.Errorf("missing %q delimiter", repsToken)
	}
	repsRaw := rest[:idx]
	if trailing := strings.TrimSpace(rest[idx+len(repsToken):]); trailing != "" {
		return 0, 0, fmt.Errorf("unexpected text %q after %q", trailing, repsToken)
	}

	sets, err := positiveInt(setsRaw, setsToken)
	if err != nil {
		return 0, 0, err
	}
	reps, err := positiveInt(repsRaw, repsToken)
	if err != nil {
		return 0, 0, err
	}
	return sets, reps, nil
}

func positiveInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s count is missing", name)
	}
	if !integerPattern.MatchString(raw) {
		return 0, fmt.Errorf("%s count %q is not an integer", name, raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s count %q is not an integer", name, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s count must be positive, got %d", name, n)
	}
	return n, nil
}

// parseQuantity reads a non-negative real terminated by unit, e.g. "62.5kg".
func parseQuantity(body, unit string) (float64, error) {
	if !strings.HasSuffix(body, unit) {
		return 0, fmt.Errorf("value must end with %q", unit)
	}
	raw := strings.TrimSpace(strings.TrimSuffix(body, unit))
	if raw == "" {
		return 0, fmt.Errorf("missing number before %q", unit)
	}
	if strings.HasPrefix(raw, "-") {
		return 0, fmt.Errorf("value must not be negative, got %s", raw)
	}
	if !decimalPattern.MatchString(raw) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is out of range", raw)
	}
	return v, nil
}
