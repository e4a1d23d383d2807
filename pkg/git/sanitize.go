package git

import (
	"regexp"
	"strings"

	"gitbridge/pkg/api"
)

var branchNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// ValidateBranchName rejects branch names outside a conservative allow-list.
// Names starting with "-" would be parsed as options by git even with
// argument-array invocation.
func ValidateBranchName(name string) error {
	if name == "" {
		return api.ValidationError{Field: "branch", Reason: "is required"}
	}
	if !branchNamePattern.MatchString(name) {
		return api.ValidationError{Field: "branch", Reason: "contains characters outside [A-Za-z0-9._/-] or starts with a non-alphanumeric character"}
	}
	if strings.Contains(name, "..") || strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, "/") {
		return api.ValidationError{Field: "branch", Reason: "is not a valid git ref name"}
	}
	return nil
}

var commitMessageStrip = regexp.MustCompile("[`$\\\\;|&<>()\x00-\x08\x0b\x0c\x0e-\x1f]")

// SanitizeCommitMessage strips shell metacharacters and control characters
// from a commit message and collapses it to a single trimmed string.
// The argument-array invocation already prevents injection; the stripping is
// kept as an explicit input validator.
func SanitizeCommitMessage(message string) string {
	msg := commitMessageStrip.ReplaceAllString(message, "")
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "Automated commit"
	}
	return msg
}
