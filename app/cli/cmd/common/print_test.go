package common

import (
	"bytes"
	"testing"
	"time"

	"gitbridge/pkg/api"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	t1 := time.Unix(1577836800, 0)
	t2 := time.Unix(1577845810, 0)

	s := duration(&t1, &t2)
	assert.Equal(t, "2h 30m 10s", s)
}

func TestPrintRun(t *testing.T) {
	start := time.Unix(1577836800, 0)
	end := time.Unix(1577836830, 0)
	run := api.NewRun("run-1", "owner-1", api.RunConfig{
		SourceRepoURL: "https://github.com/acme/app",
		TargetProject: "acme/app",
	}, start)
	run.Status = api.StatusSuccess
	run.EndTime = &end
	for i := range run.Steps {
		run.Steps[i].Status = api.StatusSuccess
	}
	run.Result = &api.RunResult{MergeRequestURL: "https://gitlab.example.com/acme/app/-/merge_requests/7"}

	var buf bytes.Buffer
	PrintRun(&buf, run, PrintOptions{})
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "5/5")
	assert.Contains(t, out, string(api.StepCreateMergeRequest))
	assert.Contains(t, out, "merge_requests/7")
}
