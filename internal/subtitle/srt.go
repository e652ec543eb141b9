package subtitle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conjurecontent/backend/internal/speech"
)

// lastCueTail extends the final word's cue past its start offset, since no
// following word bounds it.
const lastCueTail = 2 * time.Second

// FromTimings renders word timings as an SRT track: one numbered cue per
// word, from its start offset to the next word's start offset.
func FromTimings(timings []speech.WordTiming) (string, error) {
	if len(timings) == 0 {
		return "", errors.New("at least one word timing is required")
	}

	var b strings.Builder
	for i, timing := range timings {
		end := timing.Start + lastCueTail
		if i+1 < len(timings) {
			end = timings[i+1].Start
		}

		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(timing.Start), formatTimestamp(end))
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(timing.Word))
	}
	return b.String(), nil
}

// formatTimestamp renders a duration as the SRT HH:MM:SS,mmm form.
func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
