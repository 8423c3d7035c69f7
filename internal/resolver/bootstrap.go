package resolver

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/eugenenazirov/config-server/internal/source"
)

const (
	DefaultGitURL    = "https://github.com/developer-cloud-tutorials/vertx-config.git"
	DefaultGitBranch = "main"
	DefaultRepoPath  = "config-git"
)

// gitEnv is the environment view the remote descriptor is built from.
type gitEnv struct {
	URL      string `env:"GIT_URL" envDefault:"https://github.com/developer-cloud-tutorials/vertx-config.git"`
	Branch   string `env:"GIT_BRANCH" envDefault:"main"`
	User     string `env:"GIT_USER"`
	Password string `env:"GIT_PASSWORD"`
}

// ResolveBootstrap builds the remote-tree descriptor from GIT_URL,
// GIT_BRANCH, GIT_USER and GIT_PASSWORD. A nil environ reads the process
// environment. Blank values fall back to the defaults. On error the
// returned descriptor still carries the defaults so callers can keep
// serving.
func ResolveBootstrap(environ map[string]string, repoPath string) (source.Descriptor, error) {
	if strings.TrimSpace(repoPath) == "" {
		repoPath = DefaultRepoPath
	}

	var vars gitEnv
	err := env.ParseWithOptions(&vars, env.Options{Environment: environ})

	d := source.Descriptor{
		Kind:     source.KindRemoteTree,
		URL:      orDefault(vars.URL, DefaultGitURL),
		Branch:   orDefault(vars.Branch, DefaultGitBranch),
		User:     strings.TrimSpace(vars.User),
		Password: vars.Password,
		Path:     repoPath,
	}
	if err != nil {
		return d, fmt.Errorf("read git environment: %w", err)
	}
	return d, nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
