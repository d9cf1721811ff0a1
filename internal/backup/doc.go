// Package backup snapshots artifacts before they are overwritten.
//
// A Manager owns one backup root per run, a directory named after the time
// the first snapshot was taken. Every artifact backed up during the run lands
// under that root, next to a manifest.json describing the records. Backups
// are never deleted; restoring from them is a manual step.
package backup
