// Package label classifies the free-text accessibility labels rendered on a
// popular-times histogram into structured occupancy samples. The grammars are
// kept as an ordered (pattern, builder) table so new label wordings slot in
// without touching the match loop.
package label

import (
	"regexp"
	"strconv"
)

// Kind identifies which grammar a label matched.
type Kind int

const (
	// Unrecognized means the label carries no occupancy data.
	Unrecognized Kind = iota
	// LiveStatus is a "Currently N% busy, usually M% busy." label with no
	// stated hour; the hour is inferred from the previous label's hour.
	LiveStatus
	// LiveWithHour is a "Live: N% busy, usually M% busy at H AM." label.
	LiveWithHour
	// StandardBar is a plain "N% busy at H AM." histogram bar label.
	StandardBar
	// NotBusy is a "Not busy at H AM." bar label (0% busy).
	NotBusy
)

// String returns the grammar name for logging.
func (k Kind) String() string {
	switch k {
	case LiveStatus:
		return "live_status"
	case LiveWithHour:
		return "live_with_hour"
	case StandardBar:
		return "standard_bar"
	case NotBusy:
		return "not_busy"
	default:
		return "unrecognized"
	}
}

// NoPreviousHour is the sentinel for "no hour resolved yet for this day".
// A leading live-status label therefore infers hour 0.
const NoPreviousHour = -1

// Sample is one resolved (hour, busyness) reading for the current day.
type Sample struct {
	Hour     int
	Percent  int
	FromLive bool // inferred from a live-status label, not a histogram bar
}

// Live carries the real-time portion of a live label. Hour is nil when the
// label does not state one and none could be inferred.
type Live struct {
	LivePercent  int
	UsualPercent int
	Hour         *int
}

// Result is the outcome of classifying one label.
type Result struct {
	Kind   Kind
	Sample *Sample // nil when the label yields no in-range sample
	Live   *Live   // non-nil only for the two live grammars
}

// grammar binds a compiled pattern to its sample builder. Builders receive
// the submatches and the previous resolved hour and may reject the label by
// returning ok=false.
type grammar struct {
	kind  Kind
	re    *regexp.Regexp
	build func(m []string, prevHour int) (Result, bool)
}

// Patterns ported from the live UI wording. The AM/PM token is lenient
// ("a", "am", "am.") because the UI renders all three.
var grammars = []grammar{
	{
		kind: LiveStatus,
		re:   regexp.MustCompile(`(?i)^Currently (\d+)% busy, usually (\d+)% busy\.`),
		build: func(m []string, prevHour int) (Result, bool) {
			live, ok1 := percent(m[1])
			usual, ok2 := percent(m[2])
			if !ok1 || !ok2 {
				return Result{}, false
			}
			hour := prevHour + 1
			if hour > 23 {
				// A previous hour of 23 would infer hour 24; the source
				// sequence never wraps into the next day group, so the
				// sample is dropped rather than clamped.
				return Result{Kind: LiveStatus, Live: &Live{LivePercent: live, UsualPercent: usual}}, true
			}
			h := hour
			return Result{
				Kind:   LiveStatus,
				Sample: &Sample{Hour: hour, Percent: usual, FromLive: true},
				Live:   &Live{LivePercent: live, UsualPercent: usual, Hour: &h},
			}, true
		},
	},
	{
		kind: LiveWithHour,
		re:   regexp.MustCompile(`(?i)Live: (\d+)% busy, usually (\d+)% busy at (\d+)\s+([ap])m?\.?`),
		build: func(m []string, _ int) (Result, bool) {
			live, ok1 := percent(m[1])
			usual, ok2 := percent(m[2])
			hour, ok3 := clockHour(m[3], m[4])
			if !ok1 || !ok2 || !ok3 {
				return Result{}, false
			}
			return Result{
				Kind:   LiveWithHour,
				Sample: &Sample{Hour: hour, Percent: usual},
				Live:   &Live{LivePercent: live, UsualPercent: usual},
			}, true
		},
	},
	{
		kind: StandardBar,
		re:   regexp.MustCompile(`(?i)^(\d+)% busy at (\d+)\s+([ap])m?\.?`),
		build: func(m []string, _ int) (Result, bool) {
			pct, ok1 := percent(m[1])
			hour, ok2 := clockHour(m[2], m[3])
			if !ok1 || !ok2 {
				return Result{}, false
			}
			return Result{Kind: StandardBar, Sample: &Sample{Hour: hour, Percent: pct}}, true
		},
	},
	{
		kind: NotBusy,
		re:   regexp.MustCompile(`(?i)^Not busy at (\d+)\s+([ap])m?\.?`),
		build: func(m []string, _ int) (Result, bool) {
			hour, ok := clockHour(m[1], m[2])
			if !ok {
				return Result{}, false
			}
			return Result{Kind: NotBusy, Sample: &Sample{Hour: hour, Percent: 0}}, true
		},
	},
}

// Parse classifies one label against the grammar table, first match wins.
// prevHour is the previously resolved hour for the current day (or
// NoPreviousHour) and is threaded explicitly: the returned value is the
// updated previous hour to pass into the next call. Labels matching no
// grammar, or matching one with out-of-range values, come back Unrecognized
// with prevHour unchanged.
func Parse(text string, prevHour int) (Result, int) {
	for _, g := range grammars {
		m := g.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		res, ok := g.build(m, prevHour)
		if !ok {
			return Result{Kind: Unrecognized}, prevHour
		}
		if res.Sample != nil {
			prevHour = res.Sample.Hour
		}
		return res, prevHour
	}
	return Result{Kind: Unrecognized}, prevHour
}

// percent parses a 0..100 integer; anything out of range rejects the label.
func percent(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// clockHour converts a 12-hour clock reading to 0..23. 12 AM maps to 0,
// 12 PM to 12.
func clockHour(hourStr, marker string) (int, bool) {
	h, err := strconv.Atoi(hourStr)
	if err != nil || h < 1 || h > 12 {
		return 0, false
	}
	if h == 12 {
		h = 0
	}
	if marker == "p" || marker == "P" {
		h += 12
	}
	return h, true
}
