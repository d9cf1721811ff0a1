// Package cli defines the Cobra command tree for the skillkit CLI. Each file
// in this package registers one top-level command (deploy, update, audit,
// etc.) with the root command. Command implementations delegate to internal
// packages for the deployment and update logic and only handle flag parsing,
// output formatting and user interaction.
package cli
