// Package probe detects the host environment: operating system family,
// Linux distribution, shell dialect and package manager. From the OS and
// shell it derives the shell profile file that deployment may append to.
//
// Probing never fails. A field that cannot be determined is reported as
// Unknown, and Environment.Normalize degrades Unknown values to a generic
// Linux and bash default.
package probe
