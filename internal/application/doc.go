// Package application provides application initialization and dependency wiring.
// It resolves the remote repository descriptor from the environment and
// encapsulates the creation of the materializer, resolution service,
// handlers, router and HTTP server, keeping the main package focused on
// CLI parsing and orchestration.
package application
