// Package populartimes aggregates parsed histogram labels into the fixed
// week-long occupancy grid. Day 0 is Sunday, matching the source UI's week
// ordering.
package populartimes

import (
	"go.uber.org/zap"

	"github.com/sells-group/placetimes/internal/label"
)

// DaysPerWeek and HoursPerDay fix the grid dimensions.
const (
	DaysPerWeek = 7
	HoursPerDay = 24
)

// Days maps day index to the UI's day name, Sunday first.
var Days = [DaysPerWeek]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// Matrix holds per-hour busyness percentages for a week.
type Matrix [DaysPerWeek][HoursPerDay]int

// Mask records which cells actually received a sample. The persisted grid
// cannot tell "0% busy" from "no data"; the mask can.
type Mask [DaysPerWeek][HoursPerDay]bool

// LiveInfo is the single real-time reading attached to a place, when the
// histogram carried one. Hour is nil when it could not be determined.
type LiveInfo struct {
	LiveFrequency  int    `json:"live_frequency"`
	UsualFrequency int    `json:"usual_frequency"`
	Day            string `json:"day"`
	Hour           *int   `json:"hour,omitempty"`
}

// Result is a fully built week grid plus its presence mask and any live
// reading encountered. A place with no popular-times UI at all gets a nil
// Result, which is distinct from an all-zero grid.
type Result struct {
	Times   Matrix
	Present Mask
	Live    *LiveInfo
}

// Rows converts the matrix to the nested-slice form used in the persisted
// feature properties.
func (m *Matrix) Rows() [][]int {
	rows := make([][]int, DaysPerWeek)
	for d := range rows {
		rows[d] = make([]int, HoursPerDay)
		copy(rows[d], m[d][:])
	}
	return rows
}

// SampleCount reports how many cells carry real data for the given day.
func (r *Result) SampleCount(day int) int {
	if r == nil || day < 0 || day >= DaysPerWeek {
		return 0
	}
	n := 0
	for _, present := range r.Present[day] {
		if present {
			n++
		}
	}
	return n
}

// Build parses one group of labels per day, in display order, into a week
// grid. The previous-hour accumulator resets at each day boundary so a
// live-status label can only infer hours within its own day. Groups beyond
// the seventh are ignored; a count other than seven is a layout-mismatch
// warning, not an error, and whatever groups are present map to days 0..k-1.
func Build(dayGroups [][]string) *Result {
	log := zap.L().With(zap.String("component", "populartimes"))

	if len(dayGroups) != DaysPerWeek {
		log.Warn("unexpected day group count, parsing best-effort",
			zap.Int("got", len(dayGroups)),
			zap.Int("want", DaysPerWeek),
		)
	}

	res := &Result{}
	for day, labels := range dayGroups {
		if day >= DaysPerWeek {
			break
		}
		prevHour := label.NoPreviousHour
		for _, text := range labels {
			var parsed label.Result
			parsed, prevHour = label.Parse(text, prevHour)

			if parsed.Live != nil {
				live := &LiveInfo{
					LiveFrequency:  parsed.Live.LivePercent,
					UsualFrequency: parsed.Live.UsualPercent,
					Day:            Days[day],
				}
				if parsed.Live.Hour != nil {
					h := *parsed.Live.Hour
					live.Hour = &h
				}
				res.Live = live
			}

			switch {
			case parsed.Sample != nil:
				res.Times[day][parsed.Sample.Hour] = parsed.Sample.Percent
				res.Present[day][parsed.Sample.Hour] = true
			case parsed.Kind == label.Unrecognized:
				log.Debug("skipping non-data label", zap.Int("day", day), zap.String("label", text))
			default:
				// Matched a grammar but yielded no in-range sample
				// (live-status inference past hour 23).
				log.Debug("dropping out-of-range inferred sample",
					zap.Int("day", day),
					zap.String("label", text),
				)
			}
		}
	}
	return res
}
