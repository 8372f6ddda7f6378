package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termglyph/termglyph/internal/report"
)

func bucket(errs, total int) report.Bucket {
	return report.Bucket{"15.0.0": {NErrors: errs, NTotal: total}}
}

func fullReport(name string, wide, zwj, vs16 int) *report.TerminalReport {
	return &report.TerminalReport{
		Software:       name,
		Version:        "1.0",
		SecondsElapsed: 12.5,
		WideCharacter:  bucket(wide, 100),
		EmojiZWJ:       bucket(zwj, 100),
		EmojiVS16:      bucket(vs16, 100),
	}
}

func TestAggregateTotalsAndDetail(t *testing.T) {
	t.Parallel()

	agg := Aggregate([]*report.TerminalReport{fullReport("xterm", 50, 0, 0)}, PolicyIntersect)

	row := agg.Rows["xterm"]
	require.NotNil(t, row)

	assert.Equal(t, 50, row.Errors)
	assert.Equal(t, 50, row.Scores[report.BucketWide].Errors)
	assert.Equal(t, 0, row.Scores[report.BucketZWJ].Errors)
	assert.Equal(t, 0, row.Scores[report.BucketVS16].Errors)

	for _, name := range report.BucketOrder {
		assert.True(t, row.Scores[name].Exercised, name)
	}

	assert.Equal(t, "A+", row.Scores[report.BucketZWJ].Grade)
	assert.Equal(t, "D+", row.Scores[report.BucketWide].Grade)

	// FINAL averages 50%, 100% and 100%.
	assert.InDelta(t, 83.33, row.Final.Percent, 0.01)
	assert.Equal(t, "B+", row.Final.Grade)
}

func TestRankingLaw(t *testing.T) {
	t.Parallel()

	agg := Aggregate([]*report.TerminalReport{
		fullReport("alacritty", 50, 0, 0),
		fullReport("wezterm", 0, 0, 0),
	}, PolicyIntersect)

	assert.Equal(t, []string{"wezterm", "alacritty"}, agg.Ranking)
}

func TestRankingTieBreaksByName(t *testing.T) {
	t.Parallel()

	agg := Aggregate([]*report.TerminalReport{
		fullReport("tmux", 50, 0, 0),
		fullReport("screen", 0, 0, 50),
	}, PolicyIntersect)

	assert.Equal(t, []string{"screen", "tmux"}, agg.Ranking)
	assert.Equal(t, report.BucketOrder, agg.RankedOn)
}

func TestAggregateIsDeterministic(t *testing.T) {
	t.Parallel()

	input := func() []*report.TerminalReport {
		return []*report.TerminalReport{
			fullReport("kitty", 3, 1, 4),
			fullReport("foot", 1, 5, 9),
			fullReport("st", 2, 6, 5),
		}
	}

	first := Aggregate(input(), PolicyIntersect)
	second := Aggregate(input(), PolicyIntersect)

	assert.Equal(t, first, second)
}

func TestIntersectionRanking(t *testing.T) {
	t.Parallel()

	quick := &report.TerminalReport{
		Software:      "quick",
		Version:       "1.0",
		WideCharacter: bucket(5, 100),
	}
	full := fullReport("full", 2, 90, 0)

	agg := Aggregate([]*report.TerminalReport{quick, full}, PolicyIntersect)

	// Only the wide bucket is shared, so full ranks on 2 errors, not its
	// own total of 92.
	assert.Equal(t, []string{"full", "quick"}, agg.Ranking)
	assert.Equal(t, []string{report.BucketWide}, agg.RankedOn)

	// Per-terminal totals still cover each report's own buckets.
	assert.Equal(t, 92, agg.Rows["full"].Errors)
	assert.Equal(t, 5, agg.Rows["quick"].Errors)
}

func TestAvailableRanking(t *testing.T) {
	t.Parallel()

	quick := &report.TerminalReport{
		Software:      "quick",
		Version:       "1.0",
		WideCharacter: bucket(5, 100),
	}
	full := fullReport("full", 2, 90, 0)

	agg := Aggregate([]*report.TerminalReport{quick, full}, PolicyAvailable)

	assert.Equal(t, []string{"quick", "full"}, agg.Ranking)
	assert.Nil(t, agg.RankedOn)
}

func TestAbsentBucketIsNotZero(t *testing.T) {
	t.Parallel()

	exercised := fullReport("clean", 0, 0, 0)
	partial := &report.TerminalReport{
		Software:      "partial",
		Version:       "1.0",
		WideCharacter: bucket(0, 100),
	}

	agg := Aggregate([]*report.TerminalReport{exercised, partial}, PolicyIntersect)

	assert.True(t, agg.Rows["clean"].Scores[report.BucketZWJ].Exercised)
	assert.False(t, agg.Rows["partial"].Scores[report.BucketZWJ].Exercised)
	assert.Empty(t, agg.Rows["partial"].Scores[report.BucketZWJ].Grade)
}

func TestAggregateEmptyInput(t *testing.T) {
	t.Parallel()

	agg := Aggregate(nil, PolicyIntersect)

	assert.Empty(t, agg.Terminals)
	assert.Empty(t, agg.Ranking)
	assert.Empty(t, agg.Rows)
}

func TestDuplicateSoftwareLastWins(t *testing.T) {
	t.Parallel()

	agg := Aggregate([]*report.TerminalReport{
		fullReport("tmux", 40, 0, 0),
		fullReport("tmux", 7, 0, 0),
	}, PolicyIntersect)

	require.Equal(t, []string{"tmux"}, agg.Terminals)
	assert.Equal(t, 7, agg.Rows["tmux"].Errors)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    Policy
		wantErr bool
	}{
		{name: "intersect", in: "intersect", want: PolicyIntersect},
		{name: "available", in: "available", want: PolicyAvailable},
		{name: "unknown", in: "fastest", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
