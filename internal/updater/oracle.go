package updater

import (
	"context"

	"github.com/skillkit-labs/skillkit/internal/logger"
	"github.com/skillkit-labs/skillkit/internal/toolchain"
)

// Oracle looks up installed and latest versions of the managed CLI and of
// skillkit itself.
type Oracle struct {
	Runner   toolchain.Runner
	Registry *Registry
	// Package is the npm package of the managed CLI, Binary its executable.
	Package string
	Binary  string
	// Self looks up skillkit releases. It may be nil.
	Self *Updater
}

// Report is the outcome of one version check.
type Report struct {
	Installed VersionInfo
	Latest    VersionInfo
	Status    Status
	// Err holds the lookup failure that produced an Unknown side, if any.
	Err error
}

// InstalledCLI returns the installed CLI version, or Unknown when the CLI is
// missing or its output has no version.
func (o *Oracle) InstalledCLI(ctx context.Context) (VersionInfo, error) {
	raw, err := toolchain.InstalledVersion(ctx, o.Runner, o.Binary)
	if err != nil {
		return Unknown, err
	}
	return ParseVersion(raw)
}

// LatestCLI returns the latest published CLI version, or Unknown.
func (o *Oracle) LatestCLI(ctx context.Context) (VersionInfo, error) {
	return o.Registry.Latest(ctx, o.Package)
}

// CheckCLI compares the installed CLI against the registry.
func (o *Oracle) CheckCLI(ctx context.Context) Report {
	log := logger.G(ctx)
	var r Report
	var err error

	r.Installed, err = o.InstalledCLI(ctx)
	if err != nil {
		log.WithError(err).Debugf("installed %s version unknown", o.Binary)
		r.Err = err
	}
	r.Latest, err = o.LatestCLI(ctx)
	if err != nil {
		log.WithError(err).Warnf("latest %s version unknown", o.Package)
		r.Err = err
	}
	r.Status = Compare(r.Installed, r.Latest)
	return r
}

// CheckSelf compares the running skillkit against its latest release.
func (o *Oracle) CheckSelf(ctx context.Context) Report {
	r := Report{Installed: Unknown, Latest: Unknown}
	if o.Self == nil {
		return r
	}
	r.Installed = MustVersion(o.Self.CurrentVersion())

	release, err := o.Self.CheckLatestVersion(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("latest skillkit version unknown")
		r.Err = err
	} else {
		r.Latest = MustVersion(release.Version)
	}
	r.Status = Compare(r.Installed, r.Latest)
	return r
}
