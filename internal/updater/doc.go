// Package updater keeps the managed CLI and skillkit itself up to date.
//
// The Oracle looks up installed and latest versions: the CLI through its
// --version output and the npm registry, skillkit through GitHub Releases.
// A failed lookup yields the Unknown version, and any comparison involving
// Unknown reports StatusUnknown, which never leads to an install.
//
// The Scheduler decides from the persisted auto-update schedule whether a
// check is due, installs the latest CLI through npm, verifies the result,
// and stamps the last-check time after every attempt.
//
// Self-update downloads a release archive, verifies its checksum, snapshots
// the running binary and swaps it in, restoring the snapshot if the new
// binary fails verification.
package updater
