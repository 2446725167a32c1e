package logparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSingleRecord(t *testing.T) {
	entries, err := Parse("#C\n-N\n-2setsX10reps\n-50kg\n-30min")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, Entry{
		Category:    "C",
		Name:        "N",
		Sets:        2,
		Reps:        10,
		WeightKg:    50,
		DurationMin: 30,
	}, entries[0])
}

func TestParseMultipleRecordsTrimsWhitespace(t *testing.T) {
	text := "  #Legs\n  -Back Squat \n-4setsX8reps\n- 62.5kg\n-12.5min ;\r\n" +
		"#Arms\r\n-Curl\r\n-3 setsX 12 reps\r\n-10 kg\r\n-5min\n"

	entries, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "Legs", entries[0].Category)
	require.Equal(t, "Back Squat", entries[0].Name)
	require.Equal(t, 4, entries[0].Sets)
	require.Equal(t, 8, entries[0].Reps)
	require.InDelta(t, 62.5, entries[0].WeightKg, 1e-9)
	require.InDelta(t, 12.5, entries[0].DurationMin, 1e-9)

	require.Equal(t, "Arms", entries[1].Category)
	require.Equal(t, "Curl", entries[1].Name)
	require.Equal(t, 3, entries[1].Sets)
	require.Equal(t, 12, entries[1].Reps)
}

func TestParseZeroWeightAndDuration(t *testing.T) {
	entries, err := Parse("#Core\n-Plank\n-1setsX1reps\n-0kg\n-0min")
	require.NoError(t, err)
	require.Zero(t, entries[0].WeightKg)
	require.Zero(t, entries[0].DurationMin)
}

func TestParseNoCategories(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"-N\n-2setsX10reps\n-50kg\n-30min",
		"C\n-N\n-2setsX10reps\n-50kg\n-30min;C\n-N\n-2setsX10reps\n-50kg\n-30min",
	}
	for _, text := range cases {
		_, err := Parse(text)
		require.ErrorIs(t, err, ErrNoCategoriesFound, "input %q", text)
		require.False(t, errors.Is(err, ErrMalformedSubmission))
	}
}

func TestParseMissingCategoryOnLaterRecord(t *testing.T) {
	text := "#Legs\n-Squat\n-2setsX10reps\n-50kg\n-30min;" +
		"#Legs\n-Lunge\n-2setsX10reps\n-20kg\n-10min;" +
		"Legs\n-Press\n-2setsX10reps\n-80kg\n-15min"

	entries, err := Parse(text)
	require.Nil(t, entries)
	require.ErrorIs(t, err, ErrMalformedSubmission)

	var malformed *MalformedSubmissionError
	require.True(t, errors.As(err, &malformed))
	require.Equal(t, 3, malformed.Record)
	require.Equal(t, 1, malformed.Line)
	require.Equal(t, FieldCategory, malformed.Field)
}

func TestParseMalformedRecords(t *testing.T) {
	valid := "#Legs\n-Squat\n-2setsX10reps\n-50kg\n-30min"

	cases := []struct {
		name  string
		text  string
		index int
		line  int
		field Field
	}{
		{name: "too few lines", text: "#Legs\n-Squat\n-2setsX10reps\n-50kg", index: 1, field: FieldRecord},
		{name: "too many lines", text: valid + "\n-extra", index: 1, field: FieldRecord},
		{name: "trailing separator", text: valid + ";", index: 2, field: FieldRecord},
		{name: "empty category", text: "#\n-Squat\n-2setsX10reps\n-50kg\n-30min", index: 1, line: 1, field: FieldCategory},
		{name: "name without marker", text: "#Legs\nSquat\n-2setsX10reps\n-50kg\n-30min", index: 1, line: 2, field: FieldName},
		{name: "empty name", text: "#Legs\n-\n-2setsX10reps\n-50kg\n-30min", index: 1, line: 2, field: FieldName},
		{name: "category where name expected", text: "#Legs\n#Arms\n-2setsX10reps\n-50kg\n-30min", index: 1, line: 2, field: FieldName},
		{name: "lowercase x", text: "#Legs\n-Squat\n-2setsx10reps\n-50kg\n-30min", index: 1, line: 3, field: FieldSetsReps},
		{name: "missing reps", text: "#Legs\n-Squat\n-2setsX10\n-50kg\n-30min", index: 1, line: 3, field: FieldSetsReps},
		{name: "zero sets", text: "#Legs\n-Squat\n-0setsX10reps\n-50kg\n-30min", index: 1, line: 3, field: FieldSetsReps},
		{name: "fractional reps", text: "#Legs\n-Squat\n-2setsX1.5reps\n-50kg\n-30min", index: 1, line: 3, field: FieldSetsReps},
		{name: "signed sets", text: "#Legs\n-Squat\n-+2setsX10reps\n-50kg\n-30min", index: 1, line: 3, field: FieldSetsReps},
		{name: "hex reps", text: "#Legs\n-Squat\n-2setsX0x10reps\n-50kg\n-30min", index: 1, line: 3, field: FieldSetsReps},
		{name: "text after reps", text: "#Legs\n-Squat\n-2setsX10reps each\n-50kg\n-30min", index: 1, line: 3, field: FieldSetsReps},
		{name: "weight unit missing", text: "#Legs\n-Squat\n-2setsX10reps\n-50\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "weight unit uppercase", text: "#Legs\n-Squat\n-2setsX10reps\n-50KG\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "negative weight", text: "#Legs\n-Squat\n-2setsX10reps\n--5kg\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "negative zero weight", text: "#Legs\n-Squat\n-2setsX10reps\n--0kg\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "signed weight", text: "#Legs\n-Squat\n-2setsX10reps\n-+5kg\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "hex float weight", text: "#Legs\n-Squat\n-2setsX10reps\n-0x1p4kg\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "exponent duration", text: "#Legs\n-Squat\n-2setsX10reps\n-50kg\n-1e2min", index: 1, line: 5, field: FieldDuration},
		{name: "weight not a number", text: "#Legs\n-Squat\n-2setsX10reps\n-heavykg\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "infinite weight", text: "#Legs\n-Squat\n-2setsX10reps\n-Infkg\n-30min", index: 1, line: 4, field: FieldWeight},
		{name: "duration unit missing", text: "#Legs\n-Squat\n-2setsX10reps\n-50kg\n-30", index: 1, line: 5, field: FieldDuration},
		{name: "duration without marker", text: "#Legs\n-Squat\n-2setsX10reps\n-50kg\n30min", index: 1, line: 5, field: FieldDuration},
		{name: "second record broken", text: valid + ";" + "#Legs\n-Squat\n-2setsX10reps\n-50kg\n-NaNmin", index: 2, line: 5, field: FieldDuration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Parse(tc.text)
			require.Nil(t, entries)

			var malformed *MalformedSubmissionError
			require.True(t, errors.As(err, &malformed), "unexpected error %v", err)
			require.Equal(t, tc.index, malformed.Record)
			require.Equal(t, tc.line, malformed.Line)
			require.Equal(t, tc.field, malformed.Field)
			require.NotEmpty(t, malformed.Reason)
		})
	}
}

func TestParseSetsReps(t *testing.T) {
	sets, reps, err := parseSetsReps(" 5 setsX 5 reps ")
	require.NoError(t, err)
	require.Equal(t, 5, sets)
	require.Equal(t, 5, reps)

	_, _, err = parseSetsReps("setsX5reps")
	require.ErrorContains(t, err, "sets count is missing")

	_, _, err = parseSetsReps("5sets 5reps")
	require.Error(t, err)
}

func TestParseQuantity(t *testing.T) {
	v, err := parseQuantity("12.75min", "min")
	require.NoError(t, err)
	require.InDelta(t, 12.75, v, 1e-9)

	v, err = parseQuantity(".5kg", "kg")
	require.NoError(t, err)
	require.InDelta(t, 0.5, v, 1e-9)

	v, err = parseQuantity("20.kg", "kg")
	require.NoError(t, err)
	require.InDelta(t, 20, v, 1e-9)

	_, err = parseQuantity("-0kg", "kg")
	require.ErrorContains(t, err, "must not be negative")

	_, err = parseQuantity("min", "min")
	require.ErrorContains(t, err, "missing number")

	_, err = parseQuantity("12 minutes", "min")
	require.ErrorContains(t, err, `must end with "min"`)
}

func TestMalformedSubmissionErrorMessage(t *testing.T) {
	err := &MalformedSubmissionError{Record: 2, Line: 4, Field: FieldWeight, Reason: "boom"}
	require.Equal(t, "record 2, line 4 (weight): boom", err.Error())

	err = &MalformedSubmissionError{Record: 1, Field: FieldRecord, Reason: "expected 5 lines, got 3"}
	require.Equal(t, "record 1: expected 5 lines, got 3", err.Error())
}
