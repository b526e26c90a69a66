package service

import (
	"fmt"
	"strconv"
	"strings"
)

// All times are minutes-of-day integers over half-open [start, end) intervals.

const (
	sessionMinutes    = 90
	entryMinutes      = 15
	entriesPerSession = sessionMinutes / entryMinutes
	sessionsPerPair   = 2
)

// timeWindow is a half-open [Start, End) range in minutes of day.
type timeWindow struct {
	Start int
	End   int
}

func (w timeWindow) String() string {
	return fmt.Sprintf("%s-%s", formatMinutes(w.Start), formatMinutes(w.End))
}

// Fixed daily break windows that may never be scheduled into.
var breakWindows = []timeWindow{
	{Start: 9 * 60, End: 9*60 + 15},      // morning break 09:00-09:15
	{Start: 12*60 + 15, End: 13*60 + 15}, // lunch 12:15-13:15
	{Start: 16*60 + 15, End: 16*60 + 30}, // afternoon break 16:15-16:30
}

// dayTemplate holds the six 90-minute teaching slots. They do not overlap
// each other and abut, but never intersect, the break windows.
var dayTemplate = []timeWindow{
	{Start: 7*60 + 30, End: 9 * 60},
	{Start: 9*60 + 15, End: 10*60 + 45},
	{Start: 10*60 + 45, End: 12*60 + 15},
	{Start: 13*60 + 15, End: 14*60 + 45},
	{Start: 14*60 + 45, End: 16*60 + 15},
	{Start: 16*60 + 30, End: 18 * 60},
}

// windowsOverlap implements half-open interval overlap.
func windowsOverlap(start1, end1, start2, end2 int) bool {
	return !(end1 <= start2 || end2 <= start1)
}

func overlapsBreak(start, end int) bool {
	for _, b := range breakWindows {
		if windowsOverlap(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// parseClock converts "HH:MM" to minutes of day. Returns -1 for malformed
// input so callers can surface a data error instead of panicking.
func parseClock(raw string) int {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return -1
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return -1
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return -1
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return -1
	}
	return hours*60 + minutes
}

func formatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// quarterHours splits a session window into its 15-minute sub-intervals.
func quarterHours(slot timeWindow) []timeWindow {
	subs := make([]timeWindow, 0, entriesPerSession)
	for start := slot.Start; start < slot.End; start += entryMinutes {
		subs = append(subs, timeWindow{Start: start, End: start + entryMinutes})
	}
	return subs
}
