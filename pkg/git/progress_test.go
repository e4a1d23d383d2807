package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line  string
		phase Phase
		pct   int
		ok    bool
	}{
		{"Counting objects: 100% (132/132), done.", PhaseCounting, 5, true},
		{"Compressing objects:  50% (40/80)", PhaseCompressing, 15, true},
		{"Receiving objects:   0% (1/2000)", PhaseReceiving, 25, true},
		{"Receiving objects:  50% (1000/2000), 1.2 MiB | 600 KiB/s", PhaseReceiving, 55, true},
		{"Receiving objects: 100% (2000/2000), done.", PhaseReceiving, 85, true},
		{"Resolving deltas: 100% (500/500), done.", PhaseResolving, 95, true},
		{"remote: Enumerating objects: 132, done.", "", 0, false},
		{"Cloning into 'repo'...", "", 0, false},
		{"", "", 0, false},
	}
	for _, c := range cases {
		phase, pct, ok := ParseProgressLine(c.line)
		assert.Equal(t, c.ok, ok, c.line)
		if c.ok {
			assert.Equal(t, c.phase, phase, c.line)
			assert.Equal(t, c.pct, pct, c.line)
		}
	}
}

func TestParseProgressLineClampsOverflow(t *testing.T) {
	_, pct, ok := ParseProgressLine("Receiving objects: 150% (3/2)")
	assert.True(t, ok)
	assert.Equal(t, 85, pct)
}
