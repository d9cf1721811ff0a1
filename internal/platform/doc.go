// Package platform provides the filesystem primitives that the backup,
// deploy and update code share: permission-preserving copies, symlink
// reproduction, and atomic file replacement. On Windows permission bits are
// ignored and symlinks degrade to plain copies when developer mode is off.
package platform
