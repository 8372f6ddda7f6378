package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBucketFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bucket   Bucket
		expected int
	}{
		{
			name:     "explicit error counts win",
			bucket:   Bucket{"15.0.0": {NErrors: 50, NTotal: 1000, Failed: []string{"U+1F600"}}},
			expected: 50,
		},
		{
			name:     "falls back to listed failures",
			bucket:   Bucket{"15.0.0": {NTotal: 1000, Failed: []string{"U+1F600", "U+1F601"}}},
			expected: 2,
		},
		{
			name:     "sums across versions",
			bucket:   Bucket{"14.0.0": {NErrors: 3}, "15.0.0": {NErrors: 4}},
			expected: 7,
		},
		{
			name:     "exercised with zero failures",
			bucket:   Bucket{"15.0.0": {NErrors: 0, NTotal: 1000}},
			expected: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.bucket.Failures())
		})
	}
}

func TestReportTotalSumsThreeBuckets(t *testing.T) {
	t.Parallel()

	r := &TerminalReport{
		Software:      "xterm",
		Version:       "389",
		WideCharacter: Bucket{"15.0.0": {NErrors: 50, NTotal: 1000}},
		EmojiZWJ:      Bucket{"15.0.0": {NErrors: 0, NTotal: 500}},
		EmojiVS16:     Bucket{"15.0.0": {NErrors: 0, NTotal: 200}},
	}

	assert.Equal(t, 50, r.Total())
	assert.Equal(t, []string{BucketWide, BucketZWJ, BucketVS16}, r.Exercised())
}

func TestAbsentBucketIsNotExercised(t *testing.T) {
	t.Parallel()

	r := &TerminalReport{
		Software:      "tmux",
		Version:       "3.4",
		WideCharacter: Bucket{"15.0.0": {NErrors: 0, NTotal: 1000}},
	}

	_, wideOK := r.Bucket(BucketWide)
	assert.True(t, wideOK, "present bucket with zero failures is exercised")

	_, zwjOK := r.Bucket(BucketZWJ)
	assert.False(t, zwjOK, "absent bucket means not exercised, not zero failures")

	assert.Equal(t, []string{BucketWide}, r.Exercised())
	assert.Equal(t, 0, r.Total())
}

func TestReportRoundTripPreservesBucketPresence(t *testing.T) {
	t.Parallel()

	doc := `software: kitty
version: 0.32.1
seconds_elapsed: 41.5
wide_character_results:
  "15.0.0":
    n_errors: 12
    n_total: 1000
emoji_zwj_results:
  "15.0.0":
    n_errors: 0
    n_total: 500
`

	var parsed TerminalReport
	require.NoError(t, yaml.Unmarshal([]byte(doc), &parsed))

	out, err := yaml.Marshal(&parsed)
	require.NoError(t, err)

	var reparsed TerminalReport
	require.NoError(t, yaml.Unmarshal(out, &reparsed))

	assert.Equal(t, parsed.Software, reparsed.Software)
	assert.Equal(t, parsed.Version, reparsed.Version)
	assert.Equal(t, parsed.SecondsElapsed, reparsed.SecondsElapsed)

	assert.NotNil(t, reparsed.WideCharacter)
	assert.NotNil(t, reparsed.EmojiZWJ, "zero-failure bucket survives the round trip")
	assert.Nil(t, reparsed.EmojiVS16, "absent bucket stays absent")
	assert.Equal(t, parsed, reparsed)
}

func TestOutputFileName(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "xterm_20240115_103000.yaml", OutputFileName("xterm", at))
}

func TestTerminalNameFromFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		expected string
	}{
		{"xterm_20240115_103000.yaml", "xterm"},
		{"gnome-terminal_20240115_103000.yaml", "gnome-terminal"},
		{"rxvt_unicode_20240115_103000.yaml", "rxvt_unicode"},
		{"report.yaml", "report"},
		{"a_b.yaml", "a_b"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TerminalNameFromFilename(tt.filename))
	}
}

func TestFilenameRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC)

	for _, terminal := range []string{"xterm", "tmux", "gnome-terminal", "foot_like_thing"} {
		assert.Equal(t, terminal, TerminalNameFromFilename(OutputFileName(terminal, at)))
	}
}
