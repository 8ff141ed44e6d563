package util

import (
	"os"

	git "github.com/go-git/go-git/v5"
)

const shortShaLen = 7

// CommitSuffix derives the commit-scoped staging suffix ("-<short sha>") for
// the repository containing root. It falls back to the CI-provided commit
// env vars when root is not a git checkout, and returns "" when no commit
// can be determined at all.
func CommitSuffix(root string) string {
	if sha := headSha(root); sha != "" {
		return "-" + sha
	}
	for _, key := range []string{"CI_COMMIT_SHA", "GITHUB_SHA"} {
		if sha := os.Getenv(key); len(sha) >= shortShaLen {
			return "-" + sha[:shortShaLen]
		}
	}
	return ""
}

func headSha(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	sha := head.Hash().String()
	if len(sha) < shortShaLen {
		return ""
	}
	return sha[:shortShaLen]
}
