package domain

import "time"

// SlotVocabulary is the fixed set of bookable hour labels, in booking order.
// Slot labels stored elsewhere (schedule entries, appointments) are always
// drawn from this list.
var SlotVocabulary = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
	"05:00 PM",
	"06:00 PM",
	"07:00 PM",
	"08:00 PM",
}

const (
	// NextDatesLimit caps how many upcoming working dates are offered to a
	// patient at once.
	NextDatesLimit = 4

	// NextDatesScanWindowDays bounds the forward scan for upcoming working
	// dates, counted from today inclusive.
	NextDatesScanWindowDays = 14
)

// Availability is a doctor's declared weekly working pattern. Days holds
// weekday names ("Monday" ... "Sunday"); an empty set means the doctor works
// every day. StartTime and EndTime are labels from SlotVocabulary; labels not
// found in the vocabulary clamp to its bounds rather than erroring, so a
// half-filled profile still produces a usable schedule.
type Availability struct {
	Days      []string
	StartTime string
	EndTime   string
}

// WorksOn reports whether the doctor works on the given weekday. An empty
// days set means no restriction.
func (a Availability) WorksOn(weekday time.Weekday) bool {
	if len(a.Days) == 0 {
		return true
	}
	name := weekday.String()
	for _, d := range a.Days {
		if d == name {
			return true
		}
	}
	return false
}

// SlotRange resolves StartTime and EndTime to vocabulary indices, clamping
// unknown labels to the first and last entry respectively.
func (a Availability) SlotRange() (start, end int) {
	start = slotIndex(a.StartTime, 0)
	end = slotIndex(a.EndTime, len(SlotVocabulary)-1)
	return start, end
}

func slotIndex(label string, fallback int) int {
	for i, l := range SlotVocabulary {
		if l == label {
			return i
		}
	}
	return fallback
}

// SlotsForDate expands the availability into the ordered slot labels bookable
// on the given calendar date. It returns nil when the doctor does not work on
// that weekday, and when the configured range is inverted (start after end)
// it emits nothing rather than erroring, consistent with the permissive
// handling of the rest of the model.
func SlotsForDate(a Availability, date time.Time) []string {
	if !a.WorksOn(date.Weekday()) {
		return nil
	}

	start, end := a.SlotRange()
	if start > end {
		return nil
	}

	out := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, SlotVocabulary[i])
	}
	return out
}

// NextAvailableDates scans forward from today (inclusive) and returns up to
// NextDatesLimit dates on which the doctor works, looking at most
// NextDatesScanWindowDays days ahead. Fewer than NextDatesLimit dates may
// qualify inside the window; that is not an error. The result is ordered
// earliest first, each date truncated to midnight in today's location.
func NextAvailableDates(a Availability, today time.Time) []time.Time {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	out := make([]time.Time, 0, NextDatesLimit)
	for i := 0; i < NextDatesScanWindowDays; i++ {
		d := day.AddDate(0, 0, i)
		if a.WorksOn(d.Weekday()) {
			out = append(out, d)
			if len(out) == NextDatesLimit {
				break
			}
		}
	}
	return out
}
