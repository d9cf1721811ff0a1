// Package toolchain runs the external commands deployment depends on: the
// system package manager that installs Node.js, and npm, which installs and
// upgrades the managed CLI. Commands go through a Runner so tests can record
// them instead of executing anything.
package toolchain
