package notify

import (
	"time"
)

// SelectChannels computes the channels to attempt for one recipient. An
// explicit channel list on the params wins outright and skips preferences
// entirely, including quiet hours. Otherwise the category preference decides,
// intersected with the per-channel opt-ins, and quiet hours suppress
// everything non-urgent.
func SelectChannels(p *Params, prefs *Preferences, now time.Time) []Channel {
	if len(p.Channels) > 0 {
		return p.Channels
	}
	if prefs == nil {
		prefs = DefaultPreferences()
	}

	var selected []Channel
	if cat, ok := prefs.Categories[p.Category]; ok && !cat.Enabled {
		// Category switched off: the notification is suppressed outright.
		selected = nil
	} else if ok && len(cat.Channels) > 0 {
		for _, ch := range cat.Channels {
			if prefs.Channels[ch] {
				selected = append(selected, ch)
			}
		}
	} else {
		for _, ch := range AllChannels() {
			if prefs.Channels[ch] {
				selected = append(selected, ch)
			}
		}
	}

	if p.Priority != PriorityUrgent && quietHoursActive(prefs.QuietHours, now) {
		return nil
	}
	return selected
}

// quietHoursActive reports whether now falls inside the window. Start is
// inclusive, end exclusive; start > end wraps midnight. An unparseable
// window counts as inactive so a typo cannot black-hole a user's delivery.
func quietHoursActive(q *QuietHours, now time.Time) bool {
	if q == nil || !q.Enabled {
		return false
	}
	start, ok := parseClock(q.Start)
	if !ok {
		return false
	}
	end, ok := parseClock(q.End)
	if !ok {
		return false
	}
	if start == end {
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
