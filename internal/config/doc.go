// Package config manages user-level settings stored at ~/.skillkit/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the deployment target, the managed CLI package and the auto-update schedule.
package config
