package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// GitOption configures a GitMaterializer.
type GitOption func(*GitMaterializer)

// WithGitBinary overrides the git executable (primarily for tests).
func WithGitBinary(binary string) GitOption {
	return func(g *GitMaterializer) {
		g.binary = binary
	}
}

// GitMaterializer keeps a local clone of a remote branch up to date using
// the git CLI. It does not serialize itself; wrap it in Serialized.
type GitMaterializer struct {
	binary string
	logger *zap.Logger
}

// NewGitMaterializer creates a git-backed materializer.
func NewGitMaterializer(logger *zap.Logger, opts ...GitOption) *GitMaterializer {
	g := &GitMaterializer{
		binary: "git",
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Materialize clones d into d.Path when the directory is absent or empty,
// otherwise fetches d.Branch and force-checks it out.
func (g *GitMaterializer) Materialize(ctx context.Context, d Descriptor) (*FileSet, error) {
	if d.Kind != KindRemoteTree {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, d.Kind)
	}
	if d.URL == "" || d.Branch == "" || d.Path == "" {
		return nil, fmt.Errorf("%w: url, branch and path are required", ErrSourceUnavailable)
	}
	if strings.HasPrefix(d.URL, "-") || strings.HasPrefix(d.Branch, "-") {
		return nil, fmt.Errorf("%w: url and branch must not start with '-'", ErrSourceUnavailable)
	}

	empty, err := isEmptyDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceCorrupt, err)
	}

	if empty {
		err = g.clone(ctx, d)
	} else {
		err = g.update(ctx, d)
	}
	if err != nil {
		return nil, err
	}
	return newFileSet(d.Path, nil), nil
}

func (g *GitMaterializer) clone(ctx context.Context, d Descriptor) error {
	if err := os.MkdirAll(filepath.Dir(d.Path), 0o755); err != nil {
		return fmt.Errorf("%w: prepare %s: %v", ErrSourceCorrupt, d.Path, err)
	}

	g.logger.Info("cloning configuration repository", zap.Stringer("source", d))
	if _, err := g.run(ctx, "", authArgs(d), cloneArgs(d)...); err != nil {
		// A failed clone can leave a partial tree behind.
		_ = os.RemoveAll(d.Path)
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return nil
}

func (g *GitMaterializer) update(ctx context.Context, d Descriptor) error {
	if err := g.verify(ctx, d.Path); err != nil {
		g.discard(d, err)
		return fmt.Errorf("%w: %v", ErrSourceCorrupt, err)
	}

	if _, err := g.run(ctx, d.Path, nil, "remote", "set-url", "origin", d.URL); err != nil {
		g.discard(d, err)
		return fmt.Errorf("%w: %v", ErrSourceCorrupt, err)
	}

	g.logger.Debug("fetching configuration repository", zap.Stringer("source", d))
	if _, err := g.run(ctx, d.Path, authArgs(d), "fetch", "--quiet", "origin", d.Branch); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	if _, err := g.run(ctx, d.Path, nil, "checkout", "--quiet", "--force", "-B", d.Branch, "FETCH_HEAD"); err != nil {
		g.discard(d, err)
		return fmt.Errorf("%w: %v", ErrSourceCorrupt, err)
	}
	if _, err := g.run(ctx, d.Path, nil, "clean", "--quiet", "-fdx"); err != nil {
		g.discard(d, err)
		return fmt.Errorf("%w: %v", ErrSourceCorrupt, err)
	}
	return nil
}

// verify checks that dir is the top level of a git working tree.
func (g *GitMaterializer) verify(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return fmt.Errorf("%s is not a git working tree: %v", dir, err)
	}

	top, err := g.run(ctx, dir, nil, "rev-parse", "--show-toplevel")
	if err != nil {
		return err
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	got, err := filepath.EvalSymlinks(strings.TrimSpace(top))
	if err != nil {
		return err
	}
	if filepath.Clean(got) != filepath.Clean(want) {
		return fmt.Errorf("%s is nested in repository %s", dir, got)
	}
	return nil
}

// discard removes a broken clone so the next call starts from scratch.
// Directories without a .git entry are never removed.
func (g *GitMaterializer) discard(d Descriptor, cause error) {
	if _, err := os.Stat(filepath.Join(d.Path, ".git")); err != nil {
		g.logger.Error("local configuration tree is not a clone, leaving it in place",
			zap.String("path", d.Path), zap.Error(cause))
		return
	}
	g.logger.Warn("discarding corrupt configuration clone",
		zap.String("path", d.Path), zap.Error(cause))
	if err := os.RemoveAll(d.Path); err != nil {
		g.logger.Error("failed to discard configuration clone",
			zap.String("path", d.Path), zap.Error(err))
	}
}

// run executes git, optionally targeting dir via -C. Extra holds config
// flags (such as credentials) that are passed to git but never shown in
// errors. Stderr is included in the returned error.
func (g *GitMaterializer) run(ctx context.Context, dir string, extra []string, args ...string) (string, error) {
	var fullArgs []string
	if dir != "" {
		fullArgs = append(fullArgs, "-C", dir)
	}
	fullArgs = append(fullArgs, extra...)
	fullArgs = append(fullArgs, args...)

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, g.binary, fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %q: %w (stderr: %s)",
			strings.Join(redactArgs(args), " "), dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func cloneArgs(d Descriptor) []string {
	return []string{"clone", "--quiet", "--branch", d.Branch, "--single-branch", "--", d.URL, d.Path}
}

func authArgs(d Descriptor) []string {
	if !d.HasCredentials() {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(d.User + ":" + d.Password))
	return []string{"-c", "http.extraHeader=Authorization: Basic " + token}
}

func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = redactURL(arg)
	}
	return out
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}
