package api

import "fmt"

// CopyMode selects how the copy-files stage interprets the configured patterns.
type CopyMode string

const (
	CopyModeFiles   CopyMode = "files"
	CopyModeFolders CopyMode = "folders"
	CopyModeMixed   CopyMode = "mixed"
)

// RunConfig is the immutable snapshot of all pipeline inputs, recorded at
// submission so later audits do not depend on mutable settings.
type RunConfig struct {
	// Source repository (GitHub side).
	SourceRepoURL string `json:"sourceRepoUrl"`
	SourceToken   string `json:"-"`
	SourceDir     string `json:"sourceDir"`

	// Target repository (GitLab side).
	TargetProject string `json:"targetProject"`
	TargetToken   string `json:"-"`
	TargetDir     string `json:"targetDir"`
	BaseBranch    string `json:"baseBranch"`
	NewBranch     string `json:"newBranch"`

	// File selection. Empty Files and Folders copies the entire source tree.
	CopyMode                CopyMode `json:"copyMode"`
	Files                   []string `json:"files,omitempty"`
	Folders                 []string `json:"folders,omitempty"`
	DestinationPath         string   `json:"destinationPath,omitempty"`
	PreserveFolderStructure bool     `json:"preserveFolderStructure"`

	// Merge request fields.
	CommitMessage string `json:"commitMessage"`
	MRTitle       string `json:"mrTitle"`
	MRDescription string `json:"mrDescription,omitempty"`
}

// Validate rejects malformed configurations before any side effect. A run
// record is only created for configurations that pass.
func (c RunConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"sourceRepoUrl", c.SourceRepoURL},
		{"sourceToken", c.SourceToken},
		{"sourceDir", c.SourceDir},
		{"targetProject", c.TargetProject},
		{"targetToken", c.TargetToken},
		{"targetDir", c.TargetDir},
		{"baseBranch", c.BaseBranch},
		{"newBranch", c.NewBranch},
		{"commitMessage", c.CommitMessage},
		{"mrTitle", c.MRTitle},
	}
	for _, f := range required {
		if f.value == "" {
			return ValidationError{Field: f.name, Reason: "is required"}
		}
	}
	switch c.CopyMode {
	case CopyModeFiles, CopyModeFolders, CopyModeMixed:
	default:
		return ValidationError{Field: "copyMode", Reason: fmt.Sprintf("must be one of %s, %s, %s", CopyModeFiles, CopyModeFolders, CopyModeMixed)}
	}
	if c.CopyMode == CopyModeFiles && len(c.Folders) > 0 {
		return ValidationError{Field: "folders", Reason: "not permitted when copyMode is files"}
	}
	if c.CopyMode == CopyModeFolders && len(c.Files) > 0 {
		return ValidationError{Field: "files", Reason: "not permitted when copyMode is folders"}
	}
	return nil
}
