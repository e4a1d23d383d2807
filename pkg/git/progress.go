package git

import (
	"regexp"
	"strconv"
	"strings"
)

// Phase identifies a stage of the underlying fetch as reported on the git
// progress stream.
type Phase string

const (
	PhaseCounting    Phase = "counting"
	PhaseCompressing Phase = "compressing"
	PhaseReceiving   Phase = "receiving"
	PhaseResolving   Phase = "resolving"
)

// band maps a phase's raw 0-100% onto its slice of the overall progress.
type band struct {
	lo, hi int
}

// Fixed linear scaling bands per phase. Object receiving dominates a clone,
// so it owns the widest band.
var phaseBands = map[Phase]band{
	PhaseCounting:    {0, 5},
	PhaseCompressing: {5, 25},
	PhaseReceiving:   {25, 85},
	PhaseResolving:   {85, 95},
}

var progressLinePattern = regexp.MustCompile(`(?i)^(Counting objects|Compressing objects|Receiving objects|Resolving deltas):\s+(\d+)%`)

// ParseProgressLine maps one line of git's textual progress stream to a
// normalized overall percentage and phase. ok is false for lines that carry
// no progress information.
func ParseProgressLine(line string) (phase Phase, percentage int, ok bool) {
	m := progressLinePattern.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	switch {
	case strings.EqualFold(m[1], "Counting objects"):
		phase = PhaseCounting
	case strings.EqualFold(m[1], "Compressing objects"):
		phase = PhaseCompressing
	case strings.EqualFold(m[1], "Receiving objects"):
		phase = PhaseReceiving
	case strings.EqualFold(m[1], "Resolving deltas"):
		phase = PhaseResolving
	}

	raw, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	if raw > 100 {
		raw = 100
	}
	b := phaseBands[phase]
	return phase, b.lo + raw*(b.hi-b.lo)/100, true
}
