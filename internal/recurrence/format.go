package recurrence

import (
	"fmt"
	"time"
)

const absoluteLayout = "Jan 2, 2006 15:04"

// FormatNext renders the next-fire hint shown on a trigger card. A zero next
// means no hint is available. An overdue-but-not-yet-refreshed instant is
// shown as imminent, not stale; the card does not distinguish the two.
func FormatNext(next, now time.Time) string {
	if next.IsZero() {
		return "-"
	}
	diff := next.Sub(now)
	switch {
	case diff <= 0:
		return "Triggering soon..."
	case diff < time.Hour:
		return fmt.Sprintf("Next: in %dm", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("Next: in %dh", int(diff/time.Hour))
	default:
		// Far-out fires show an absolute wall-clock in the instant's own
		// zone (the rule's fixed offset for local results, the backend's
		// offset for authoritative ones).
		return next.Format(absoluteLayout)
	}
}
