package grammar

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// maxDurationSeconds bounds natural-language durations. Anything longer than
// a day is not a sensible media position.
const maxDurationSeconds = 86400

// durationExpr is the participle grammar for natural-language durations.
// Examples: "10 minutes", "1h30m", "1 hour and 5 seconds", "2.5min", "1m, 20s"
//
//nolint:govet // participle grammar tags are not standard struct tags
type durationExpr struct {
	Terms []*durationTerm `parser:"@@ ( ( \",\" | \"and\" )? @@ )*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type durationTerm struct {
	Amount float64 `parser:"@Number"`
	Unit   string  `parser:"@Word"`
}

var durationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]*)?|\.[0-9]+`},
	{Name: "Word", Pattern: `[a-z]+`},
	{Name: "Punct", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var durationParser = participle.MustBuild[durationExpr](
	participle.Lexer(durationLexer),
	participle.Elide("Whitespace"),
)

// unitSeconds maps every accepted unit spelling to its length in seconds.
var unitSeconds = map[string]float64{
	"ms": 0.001, "msec": 0.001, "msecs": 0.001, "millisecond": 0.001, "milliseconds": 0.001,
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"d": 86400, "day": 86400, "days": 86400,
	"w": 604800, "wk": 604800, "wks": 604800, "week": 604800, "weeks": 604800,
}

// parseDuration parses a lower-cased natural-language duration and returns
// its length in seconds. Durations outside [0, 86400] are rejected.
func parseDuration(s string) (float64, bool) {
	expr, err := durationParser.ParseString("", s)
	if err != nil || len(expr.Terms) == 0 {
		return 0, false
	}

	var total float64
	for _, term := range expr.Terms {
		unit, ok := unitSeconds[term.Unit]
		if !ok {
			return 0, false
		}
		total += term.Amount * unit
	}

	if total < 0 || total > maxDurationSeconds {
		return 0, false
	}
	return total, true
}
