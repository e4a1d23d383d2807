package common

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"gitbridge/pkg/api"
)

const (
	progressBarWidth       = 20
	progressBarChar        = "■"
	progressBarPlaceholder = "·"
)

var (
	statusIconMap map[api.Status]string
)

func init() {
	statusIconMap = map[api.Status]string{
		api.StatusIdle:       "◷",
		api.StatusInProgress: "●",
		api.StatusSuccess:    "✔",
		api.StatusFailed:     "✖",
	}
}

// PrintOptions defines print options
type PrintOptions struct{}

// PrintRun prints the run state in the given writer
func PrintRun(w io.Writer, run api.PipelineRun, opts PrintOptions) {
	fmt.Fprintln(w)

	// Header
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "RunID:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", run.Status)
	fmt.Fprintf(tw, "Source:\t%s\n", run.Configuration.SourceRepoURL)
	fmt.Fprintf(tw, "Target:\t%s\n", run.Configuration.TargetProject)
	fmt.Fprintf(tw, "Started:\t%s\n", date(run.StartTime))
	fmt.Fprintf(tw, "Finished:\t%s\n", date(run.EndTime))
	fmt.Fprintf(tw, "Duration:\t%s\n", duration(run.StartTime, run.EndTime))
	tw.Flush()
	fmt.Fprintln(w)

	tw.Init(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tDURATION\tMESSAGE")
	fmt.Fprintf(tw, "%s migration %s\t\t%s\n", statusIconMap[run.Status], stepProgression(run.Steps), "")

	for i, step := range run.Steps {
		prefix := "├"
		if i == len(run.Steps)-1 {
			prefix = "└"
		}
		printStep(tw, step, prefix)
	}
	tw.Flush()

	if run.Result != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Merge request: %s\n", run.Result.MergeRequestURL)
	}
	if run.ErrorDetail != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Error in %s: %s\n", run.ErrorDetail.Step, run.ErrorDetail.Message)
	}
}

func printStep(w io.Writer, step api.StepRecord, prefix string) {
	msg := step.Message
	if step.ErrorMessage != "" {
		msg = step.ErrorMessage
	}
	fmt.Fprintf(w, "%s %s %s\t%s\t%s\n", prefix, statusIconMap[step.Status], step.Name, duration(step.StartTime, step.EndTime), msg)
}

// stepProgression returns a string to be printed for step progression
func stepProgression(steps []api.StepRecord) string {
	total := len(steps)
	if total == 0 {
		return ""
	}
	finished := 0
	for _, s := range steps {
		if s.Status.Finished() {
			finished++
		}
	}
	if finished == total {
		return fmt.Sprintf("%d/%d", finished, total)
	}
	return fmt.Sprintf("%s %d/%d", progressBar(finished, total), finished, total)
}

func progressBar(current, total int) string {
	value := (current * progressBarWidth) / total
	buf := bytes.NewBuffer(make([]byte, 0, progressBarWidth))
	for i := 0; i < progressBarWidth; i++ {
		if i < value {
			fmt.Fprint(buf, progressBarChar)
		} else {
			fmt.Fprint(buf, progressBarPlaceholder)
		}
	}
	return buf.String()
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2 Jan 2006 15:04:05.000")
}

func duration(start, end *time.Time) string {
	var d time.Duration
	if start == nil {
		return ""
	}
	if end == nil {
		d = time.Since(*start)
	} else {
		d = end.Sub(*start)
	}

	// Print
	if d.Seconds() <= 60.0 {
		return fmt.Sprintf("%0.0fs", d.Seconds())
	} else if d.Minutes() <= 60.0 {
		m := int64(d.Minutes())
		s := math.Mod(d.Seconds(), 60)
		return fmt.Sprintf("%0.dm %0.0fs", m, s)
	} else {
		h := int64(d.Hours())
		m := int64(math.Mod(d.Minutes(), 60))
		s := math.Mod(d.Seconds(), 60)
		return fmt.Sprintf("%0.dh %0.dm %0.0fs", h, m, s)
	}
}
