// Package gitutil provides small git helpers used when recording build
// history: resolving the current commit and branch, and validating SHAs.
package gitutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var log = logger.New("gitutil:gitutil")

// IsHexString checks if a string contains only hexadecimal characters.
// This is used to validate Git commit SHAs and other hexadecimal identifiers.
func IsHexString(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// HeadSHA returns the full SHA of HEAD in dir, or "" when dir is not a git
// checkout or git is unavailable. Failures are intentionally soft; build
// history works without git metadata.
func HeadSHA(ctx context.Context, runner infra.CommandRunner, dir string) string {
	out := runGit(ctx, runner, dir, "rev-parse", "HEAD")
	if out == "" || !IsHexString(out) {
		return ""
	}
	return out
}

// CurrentBranch returns the branch name of HEAD in dir, or "" for detached
// HEAD, non-repositories, or missing git.
func CurrentBranch(ctx context.Context, runner infra.CommandRunner, dir string) string {
	out := runGit(ctx, runner, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if out == "HEAD" {
		return ""
	}
	return out
}

func runGit(ctx context.Context, runner infra.CommandRunner, dir string, args ...string) string {
	if _, err := runner.LookPath("git"); err != nil {
		log.Print("git not found on PATH")
		return ""
	}

	result, err := runner.Run(ctx, infra.Command{Name: "git", Args: args, Dir: dir})
	if err != nil || result.ExitCode != 0 {
		log.Printf("git %s failed: exit=%d err=%v", strings.Join(args, " "), result.ExitCode, err)
		return ""
	}
	return strings.TrimSpace(string(result.Stdout))
}

// ShortSHA truncates a commit SHA to the conventional 7 characters.
func ShortSHA(sha string) string {
	if len(sha) <= 7 {
		return sha
	}
	return sha[:7]
}

// DescribeCommit formats a SHA and branch for display, e.g. "a1b2c3d (main)".
func DescribeCommit(sha, branch string) string {
	if sha == "" {
		return ""
	}
	if branch == "" {
		return ShortSHA(sha)
	}
	return fmt.Sprintf("%s (%s)", ShortSHA(sha), branch)
}
