package grammar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediafrag/models"
)

func TestParseTimeExpression(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.Boundary
		ok    bool
	}{
		{"start sentinel", "start", models.Seconds(0), true},
		{"start sentinel upper case", "  START ", models.Seconds(0), true},
		{"end sentinel", "end", models.OpenEnd(), true},
		{"short end sentinel", "e", models.OpenEnd(), true},
		{"percent", "50%", models.Percent(50), true},
		{"fractional percent", "12.5%", models.Percent(12.5), true},
		{"percent bounds", "100%", models.Percent(100), true},
		{"percent out of range", "150%", models.Boundary{}, false},
		{"bare seconds", "90", models.Seconds(90), true},
		{"fractional seconds", "12.75", models.Seconds(12.75), true},
		{"leading dot", ".5", models.Seconds(0.5), true},
		{"mm:ss", "1:30", models.Seconds(90), true},
		{"mm:ss unbounded minutes", "90:00", models.Seconds(5400), true},
		{"mm:ss fractional", "0:05.25", models.Seconds(5.25), true},
		{"mm:ss bad seconds", "1:60", models.Boundary{}, false},
		{"hh:mm:ss", "1:01:01", models.Seconds(3661), true},
		{"hh:mm:ss zero hours", "00:02:03.5", models.Seconds(123.5), true},
		{"hh:mm:ss bad minutes", "0:75:00", models.Boundary{}, false},
		{"natural minutes", "10 minutes", models.Seconds(600), true},
		{"compact natural", "1h30m", models.Seconds(5400), true},
		{"natural with and", "1 hour and 5 seconds", models.Seconds(3605), true},
		{"natural with comma", "1m, 20s", models.Seconds(80), true},
		{"natural fractional", "2.5min", models.Seconds(150), true},
		{"natural upper case", "2 Hours", models.Seconds(7200), true},
		{"natural exactly one day", "1 day", models.Seconds(86400), true},
		{"natural beyond a day", "2 days", models.Boundary{}, false},
		{"natural unknown unit", "3 parsecs", models.Boundary{}, false},
		{"negative", "-5", models.Boundary{}, false},
		{"empty", "   ", models.Boundary{}, false},
		{"garbage", "soon", models.Boundary{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimeExpression(tt.input)
			require.Equal(t, tt.ok, ok, "ParseTimeExpression(%q)", tt.input)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.want.Kind, got.Kind)
			if tt.want.IsOpenEnd() {
				assert.True(t, got.IsOpenEnd())
			} else {
				assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
			}
		})
	}
}

func TestParseFragmentSubpath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *models.Fragment
	}{
		{"range", "t=10,20", &models.Fragment{Start: models.Seconds(10), End: models.Seconds(20), StartRaw: "10", EndRaw: "20"}},
		{"leading hash", "#t=1:20", &models.Fragment{Start: models.Seconds(80), StartRaw: "1:20"}},
		{"end only", "t=,30", &models.Fragment{Start: models.Seconds(0), End: models.Seconds(30), EndRaw: "30"}},
		{"trailing comma", "t=15,", &models.Fragment{Start: models.Seconds(15), StartRaw: "15"}},
		{"percent range", "t=10%,end", &models.Fragment{Start: models.Percent(10), End: models.OpenEnd(), StartRaw: "10%", EndRaw: "end"}},
		{"other params", "foo=bar&t=5,6", &models.Fragment{Start: models.Seconds(5), End: models.Seconds(6), StartRaw: "5", EndRaw: "6"}},
		{"first t wins", "t=1,2&t=3,4", &models.Fragment{Start: models.Seconds(1), End: models.Seconds(2), StartRaw: "1", EndRaw: "2"}},
		{"inverted kept", "t=30,20", &models.Fragment{Start: models.Seconds(30), End: models.Seconds(20), StartRaw: "30", EndRaw: "20"}},
		{"natural language", "t=1 minute,2 minutes", &models.Fragment{Start: models.Seconds(60), End: models.Seconds(120), StartRaw: "1 minute", EndRaw: "2 minutes"}},
		{"no t key", "novalue", nil},
		{"empty", "", nil},
		{"empty value", "t=", nil},
		{"only comma", "t=,", nil},
		{"bad start", "t=abc,20", nil},
		{"bad end", "t=10,150%", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFragmentSubpath(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	opts := DefaultFormatOptions()
	tests := []struct {
		name     string
		seconds  float64
		raw      string
		opts     FormatOptions
		expected string
	}{
		{"minutes", 90, "", opts, "1:30"},
		{"seconds only", 5, "", opts, "0:05"},
		{"hours", 3661, "", opts, "1:01:01"},
		{"fractional", 90.5, "", opts, "1:30.5"},
		{"raw preserved", 90, "90", opts, "90"},
		{"raw natural preserved", 600, "10 minutes", opts, "10 minutes"},
		{"raw mismatch ignored", 91, "90", opts, "1:31"},
		{"raw decimal point shown", 90, "89.0", opts, "1:30.0"},
		{"untrimmed", 90, "", FormatOptions{Decimals: 3}, "00:01:30"},
		{"trim minutes", 5, "", FormatOptions{TrimHours: true, TrimMinutes: true, TrimLeadingZeros: true}, "5"},
		{"raw seconds mode", 90.25, "", FormatOptions{RawSeconds: true}, "90.25"},
		{"two decimals", 1.234, "", FormatOptions{TrimHours: true, TrimLeadingZeros: true, Decimals: 2}, "0:01.23"},
		{"open end", math.Inf(1), "", opts, "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSeconds(tt.seconds, tt.raw, tt.opts))
		})
	}
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "90.5s", FormatLabel(90.5, "", FormatOptions{RawSeconds: true}))
	assert.Equal(t, "1:30", FormatLabel(90, "", DefaultFormatOptions()))
	assert.Equal(t, "1:30", FormatLabel(90, "1:30", FormatOptions{RawSeconds: true}))
}

func TestFormatSecondsRoundTrip(t *testing.T) {
	optionSets := map[string]FormatOptions{
		"default":   DefaultFormatOptions(),
		"untrimmed": {Decimals: 3},
		"compact":   {TrimHours: true, TrimMinutes: true, TrimLeadingZeros: true, Decimals: 2},
		"raw":       {RawSeconds: true},
	}

	for name, opts := range optionSets {
		t.Run(name, func(t *testing.T) {
			for s := 0.0; s < 86400; s += 97.37 {
				b, ok := ParseTimeExpression(FormatSeconds(s, "", opts))
				require.True(t, ok, "format of %v did not parse", s)
				require.InDelta(t, s, b.Value, 0.01)
			}
			for _, s := range []float64{0, 0.5, 59.999, 3599.99, 86399} {
				b, ok := ParseTimeExpression(FormatSeconds(s, "", opts))
				require.True(t, ok)
				require.InDelta(t, s, b.Value, 0.01)
			}
		})
	}
}

func TestGenerateFragmentSubpath(t *testing.T) {
	opts := DefaultFormatOptions()
	tests := []struct {
		name     string
		fragment *models.Fragment
		expected string
	}{
		{"nil", nil, ""},
		{"empty", &models.Fragment{}, ""},
		{"start and open end", &models.Fragment{Start: models.Seconds(0), End: models.OpenEnd()}, "t=start,end"},
		{"range formatted", &models.Fragment{Start: models.Seconds(90), End: models.Seconds(120)}, "t=1:30,2:00"},
		{"raw preferred", &models.Fragment{Start: models.Seconds(90), End: models.Seconds(120), StartRaw: "90", EndRaw: "2 minutes"}, "t=90,2 minutes"},
		{"single timestamp", &models.Fragment{Start: models.Seconds(10)}, "t=0:10"},
		{"end only anchored", &models.Fragment{End: models.Seconds(30)}, "t=0,0:30"},
		{"percent", &models.Fragment{Start: models.Percent(25), End: models.Percent(75.5)}, "t=25%,75.5%"},
		{"placeholder start ignored", &models.Fragment{Start: models.Seconds(models.PlaceholderSeconds), End: models.Seconds(30)}, "t=0,0:30"},
		{"placeholder raw ignored", &models.Fragment{Start: models.Seconds(models.PlaceholderSeconds), StartRaw: "0.001"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateFragmentSubpath(tt.fragment, opts))
		})
	}
}

func TestSubpathRoundTrip(t *testing.T) {
	fragments := []*models.Fragment{
		{Start: models.Seconds(10), End: models.Seconds(20)},
		{Start: models.Seconds(0), End: models.OpenEnd()},
		{Start: models.Seconds(3723.5)},
		{Start: models.Percent(10), End: models.Percent(90)},
		{Start: models.Seconds(90), End: models.Seconds(95), StartRaw: "1:30", EndRaw: "95"},
	}

	for _, f := range fragments {
		sub := GenerateFragmentSubpath(f, DefaultFormatOptions())
		got := ParseFragmentSubpath(sub)
		require.NotNil(t, got, "subpath %q", sub)
		assert.True(t, models.Equal(f, got), "round trip of %q: %+v != %+v", sub, f, got)
	}
}

func TestReplaceTimeParam(t *testing.T) {
	tests := []struct {
		name     string
		subpath  string
		t        string
		expected string
	}{
		{"replace", "t=1,2", "t=3,4", "t=3,4"},
		{"keep others", "foo=1&t=1,2&bar=2", "t=3", "foo=1&t=3&bar=2"},
		{"insert", "foo=1", "t=3", "t=3&foo=1"},
		{"insert into empty", "", "t=3", "t=3"},
		{"remove", "foo=1&t=1,2", "", "foo=1"},
		{"remove only", "t=1,2", "", ""},
		{"drop duplicates", "t=1&t=2", "t=5", "t=5"},
		{"hash tolerated", "#t=1", "t=2", "t=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReplaceTimeParam(tt.subpath, tt.t))
		})
	}
}

func TestHasTimeParam(t *testing.T) {
	assert.True(t, HasTimeParam("t=abc"))
	assert.True(t, HasTimeParam("#foo=1&T=5"))
	assert.False(t, HasTimeParam("foo=1"))
	assert.False(t, HasTimeParam(""))
}
