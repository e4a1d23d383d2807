package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBranchName(t *testing.T) {
	valid := []string{"main", "feature/import-widgets", "release-1.2", "a", "import_2024"}
	for _, name := range valid {
		assert.NoError(t, ValidateBranchName(name), name)
	}

	invalid := []string{
		"",
		"-rf",
		"--force",
		"branch name",
		"branch;rm",
		"branch`id`",
		"a..b",
		"branch.lock",
		"branch/",
		"$(whoami)",
	}
	for _, name := range invalid {
		assert.Error(t, ValidateBranchName(name), name)
	}
}

func TestSanitizeCommitMessage(t *testing.T) {
	assert.Equal(t, "import widgets", SanitizeCommitMessage("import widgets"))
	assert.Equal(t, "import widgets", SanitizeCommitMessage("import; widgets`|&`"))
	assert.Equal(t, "deploy date", SanitizeCommitMessage("deploy $(date)"))
	assert.Equal(t, "a b", SanitizeCommitMessage("  a b \x00\x1b"))
	assert.Equal(t, "Automated commit", SanitizeCommitMessage("```$;|&"))
	assert.Equal(t, "Automated commit", SanitizeCommitMessage("   "))
}
