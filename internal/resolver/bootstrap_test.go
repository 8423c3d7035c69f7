package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/config-server/internal/source"
)

func TestResolveBootstrapDefaults(t *testing.T) {
	d, err := ResolveBootstrap(map[string]string{}, "")
	require.NoError(t, err)

	assert.Equal(t, source.Descriptor{
		Kind:   source.KindRemoteTree,
		URL:    DefaultGitURL,
		Branch: DefaultGitBranch,
		Path:   DefaultRepoPath,
	}, d)
	assert.False(t, d.HasCredentials())
}

func TestResolveBootstrapReadsEnvironment(t *testing.T) {
	d, err := ResolveBootstrap(map[string]string{
		"GIT_URL":      "https://git.example.com/configs.git",
		"GIT_BRANCH":   "release",
		"GIT_USER":     "bot",
		"GIT_PASSWORD": "secret",
	}, "/var/lib/configs")
	require.NoError(t, err)

	assert.Equal(t, "https://git.example.com/configs.git", d.URL)
	assert.Equal(t, "release", d.Branch)
	assert.Equal(t, "bot", d.User)
	assert.Equal(t, "secret", d.Password)
	assert.Equal(t, "/var/lib/configs", d.Path)
	assert.True(t, d.HasCredentials())
}

func TestResolveBootstrapBlankValuesUseDefaults(t *testing.T) {
	d, err := ResolveBootstrap(map[string]string{"GIT_URL": "  ", "GIT_BRANCH": ""}, "repo")
	require.NoError(t, err)

	assert.Equal(t, DefaultGitURL, d.URL)
	assert.Equal(t, DefaultGitBranch, d.Branch)
}

func TestResolveBootstrapProcessEnvironment(t *testing.T) {
	t.Setenv("GIT_URL", "https://git.example.com/from-env.git")
	t.Setenv("GIT_BRANCH", "")

	d, err := ResolveBootstrap(nil, "repo")
	require.NoError(t, err)

	assert.Equal(t, "https://git.example.com/from-env.git", d.URL)
	assert.Equal(t, DefaultGitBranch, d.Branch)
}
