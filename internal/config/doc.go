// Package config loads the server's own runtime settings from multiple
// sources (YAML file, environment variables, CLI flags) with precedence:
// CLI flags > Environment variables > YAML config > Defaults. The settings
// of the remote configuration repository itself (GIT_*) are read by the
// resolver package at bootstrap.
package config
