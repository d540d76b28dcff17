// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gitrepo wraps the git executable for clone, pull, log, and diff.
// URLs are validated before reaching exec to prevent command injection, and
// credentials never appear in logs.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// validGitURLPattern matches valid git URLs (https, ssh, file).
	validGitURLPattern = regexp.MustCompile(`^(https?://|git@|ssh://|file://)[\w.\-@:/%]+$`)

	// dangerousCharsPattern matches characters usable for command injection.
	dangerousCharsPattern = regexp.MustCompile(`[;&|$` + "`" + `\n\r\\]`)
)

// Client runs git operations against working trees under baseDir.
type Client struct {
	baseDir string
	logger  *slog.Logger
}

// NewClient creates a git client that places working trees under baseDir.
func NewClient(baseDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseDir: baseDir, logger: logger}
}

// CloneResult describes a cloned working tree.
type CloneResult struct {
	LocalPath    string
	Name         string
	Branch       string
	Organization string
	Version      string // HEAD commit hash
}

// Commit is one entry of a repository's history.
type Commit struct {
	Hash    string
	Title   string
	Body    string
	Author  string
	Date    time.Time
}

// PullResult describes the outcome of a pull.
type PullResult struct {
	Commits     []Commit // new commits since the requested version, newest first
	HeadVersion string
}

// ChangedFile is one entry of a diff between two commits.
type ChangedFile struct {
	Status string // A, M, D, R...
	Path   string
}

// ValidateURL checks a git URL before it reaches exec.
func ValidateURL(gitURL string) error {
	if gitURL == "" {
		return fmt.Errorf("git URL is empty")
	}
	if dangerousCharsPattern.MatchString(gitURL) {
		return fmt.Errorf("git URL contains dangerous characters")
	}

	if strings.HasPrefix(gitURL, "http://") || strings.HasPrefix(gitURL, "https://") {
		parsed, err := url.Parse(gitURL)
		if err != nil {
			return fmt.Errorf("invalid URL format: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("git URL missing host")
		}
		if parsed.User != nil {
			if _, hasPassword := parsed.User.Password(); hasPassword {
				return fmt.Errorf("git URL should not contain embedded password")
			}
		}
		return nil
	}
	if strings.HasPrefix(gitURL, "git@") || strings.HasPrefix(gitURL, "ssh://") {
		if !validGitURLPattern.MatchString(gitURL) {
			return fmt.Errorf("invalid SSH git URL format")
		}
		return nil
	}
	if strings.HasPrefix(gitURL, "file://") {
		return nil
	}
	return fmt.Errorf("unsupported git URL protocol: must be https://, git@, ssh://, or file://")
}

// ParseRepoName extracts the organization and repository name from a URL.
func ParseRepoName(gitURL string) (org, name string) {
	trimmed := strings.TrimSuffix(gitURL, ".git")
	trimmed = strings.TrimSuffix(trimmed, "/")

	// git@host:org/repo
	if at := strings.Index(trimmed, "@"); at >= 0 && !strings.Contains(trimmed, "://") {
		if colon := strings.Index(trimmed, ":"); colon > at {
			trimmed = trimmed[colon+1:]
		}
	} else if parsed, err := url.Parse(trimmed); err == nil && parsed.Path != "" {
		trimmed = strings.TrimPrefix(parsed.Path, "/")
	}

	parts := strings.Split(trimmed, "/")
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return parts[len(parts)-2], parts[len(parts)-1]
	}
}

// authenticatedURL injects username/password into an https URL. Other
// protocols carry credentials out of band (ssh agent) and pass through.
func authenticatedURL(gitURL, username, password string) string {
	if username == "" || !strings.HasPrefix(gitURL, "http") {
		return gitURL
	}
	parsed, err := url.Parse(gitURL)
	if err != nil {
		return gitURL
	}
	if password != "" {
		parsed.User = url.UserPassword(username, password)
	} else {
		parsed.User = url.User(username)
	}
	return parsed.String()
}

// sanitizeURL strips credentials and query parameters for logging.
func sanitizeURL(gitURL string) string {
	parsed, err := url.Parse(gitURL)
	if err != nil {
		return gitURL
	}
	parsed.RawQuery = ""
	parsed.User = nil
	return parsed.String()
}

func (c *Client) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Clone fetches a repository into baseDir/<org>/<name> and resolves its
// metadata. An existing working tree at the target path is reused by
// resetting it to the remote state rather than recloned.
func (c *Client) Clone(ctx context.Context, gitURL, username, password, branch string) (*CloneResult, error) {
	if err := ValidateURL(gitURL); err != nil {
		return nil, fmt.Errorf("invalid git URL: %w", err)
	}

	org, name := ParseRepoName(gitURL)
	if name == "" {
		return nil, fmt.Errorf("cannot derive repository name from %s", sanitizeURL(gitURL))
	}
	target := filepath.Join(c.baseDir, org, name)

	c.logger.Info("git.clone.start", "url", sanitizeURL(gitURL), "target", target)

	if _, err := os.Stat(filepath.Join(target, ".git")); err == nil {
		if _, err := c.git(ctx, target, "fetch", "--all", "--quiet"); err != nil {
			return nil, err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return nil, fmt.Errorf("create clone directory: %w", err)
		}
		args := []string{"clone", "--quiet"}
		if branch != "" {
			args = append(args, "--branch", branch)
		}
		args = append(args, authenticatedURL(gitURL, username, password), target)
		if _, err := c.git(ctx, "", args...); err != nil {
			_ = os.RemoveAll(target)
			return nil, err
		}
	}

	if branch != "" {
		if _, err := c.git(ctx, target, "checkout", "--quiet", branch); err != nil {
			return nil, err
		}
	}

	resolvedBranch, err := c.git(ctx, target, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}
	version, err := c.git(ctx, target, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}

	result := &CloneResult{
		LocalPath:    target,
		Name:         name,
		Branch:       strings.TrimSpace(resolvedBranch),
		Organization: org,
		Version:      strings.TrimSpace(version),
	}
	c.logger.Info("git.clone.success",
		"url", sanitizeURL(gitURL),
		"branch", result.Branch,
		"version", result.Version,
	)
	return result, nil
}

// Pull updates an existing working tree and returns the commits made since
// sinceVersion, newest first.
func (c *Client) Pull(ctx context.Context, localPath, sinceVersion, username, password string) (*PullResult, error) {
	if _, err := c.git(ctx, localPath, "pull", "--quiet"); err != nil {
		return nil, err
	}

	head, err := c.git(ctx, localPath, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	headVersion := strings.TrimSpace(head)

	var commits []Commit
	if sinceVersion != "" && sinceVersion != headVersion {
		commits, err = c.Log(ctx, localPath, sinceVersion+".."+headVersion)
		if err != nil {
			return nil, err
		}
	}
	return &PullResult{Commits: commits, HeadVersion: headVersion}, nil
}

// logFormat uses unit separator delimited fields and a record separator per
// commit, both safe against free-text commit messages.
const logFormat = "%H%x1f%s%x1f%b%x1f%an%x1f%at%x1e"

// Log returns commits for a revision range ("" means full history), newest
// first.
func (c *Client) Log(ctx context.Context, localPath, revRange string) ([]Commit, error) {
	args := []string{"log", "--pretty=format:" + logFormat}
	if revRange != "" {
		args = append(args, revRange)
	}
	out, err := c.git(ctx, localPath, args...)
	if err != nil {
		return nil, err
	}

	var commits []Commit
	for _, record := range strings.Split(out, "\x1e") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, "\x1f", 5)
		if len(fields) < 5 {
			continue
		}
		commit := Commit{
			Hash:   fields[0],
			Title:  fields[1],
			Body:   strings.TrimSpace(fields[2]),
			Author: fields[3],
		}
		if epoch, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64); err == nil {
			commit.Date = time.Unix(epoch, 0).UTC()
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// Diff lists the files changed between two commits as name-status pairs.
func (c *Client) Diff(ctx context.Context, localPath, commitA, commitB string) ([]ChangedFile, error) {
	out, err := c.git(ctx, localPath, "diff", "--name-status", commitA, commitB)
	if err != nil {
		return nil, err
	}

	var changes []ChangedFile
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// Renames carry two paths; the new one is last.
		changes = append(changes, ChangedFile{
			Status: string(fields[0][0]),
			Path:   fields[len(fields)-1],
		})
	}
	return changes, nil
}

// CommitAll stages every change under localPath and commits it with message.
// A clean working tree is not an error; it reports false instead.
func (c *Client) CommitAll(ctx context.Context, localPath, message string) (bool, error) {
	if _, err := c.git(ctx, localPath, "add", "-A"); err != nil {
		return false, err
	}
	status, err := c.git(ctx, localPath, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(status) == "" {
		return false, nil
	}
	_, err = c.git(ctx, localPath,
		"-c", "user.name=rde",
		"-c", "user.email=rde@localhost",
		"commit", "--quiet", "-m", message,
	)
	if err != nil {
		return false, err
	}
	c.logger.Info("git.commit.success", "path", localPath)
	return true, nil
}
