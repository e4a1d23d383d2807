package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() RunConfig {
	return RunConfig{
		SourceRepoURL: "https://github.com/acme/widgets.git",
		SourceToken:   "st",
		SourceDir:     "/tmp/src",
		TargetProject: "acme/widgets-mirror",
		TargetToken:   "tt",
		TargetDir:     "/tmp/dst",
		BaseBranch:    "main",
		NewBranch:     "import/widgets",
		CopyMode:      CopyModeMixed,
		CommitMessage: "import widgets",
		MRTitle:       "Import widgets",
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateMissingFields(t *testing.T) {
	cases := []func(*RunConfig){
		func(c *RunConfig) { c.SourceRepoURL = "" },
		func(c *RunConfig) { c.SourceToken = "" },
		func(c *RunConfig) { c.TargetProject = "" },
		func(c *RunConfig) { c.BaseBranch = "" },
		func(c *RunConfig) { c.NewBranch = "" },
		func(c *RunConfig) { c.MRTitle = "" },
	}
	for _, mutate := range cases {
		c := validConfig()
		mutate(&c)
		err := c.Validate()
		assert.Error(t, err)
		assert.IsType(t, ValidationError{}, err)
	}
}

func TestValidateCopyMode(t *testing.T) {
	c := validConfig()
	c.CopyMode = "zip"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.CopyMode = CopyModeFiles
	c.Folders = []string{"docs"}
	assert.Error(t, c.Validate())

	c = validConfig()
	c.CopyMode = CopyModeFolders
	c.Files = []string{"a.txt"}
	assert.Error(t, c.Validate())
}
