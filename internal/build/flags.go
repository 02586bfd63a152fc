// SPDX-License-Identifier: MIT
//
// Package build carries metadata injected at link time, for example:
//
//	go build -ldflags "-X audiobars/internal/build.buildName=audiobars \
//	  -X audiobars/internal/build.buildVersion=0.3.0 ..."
//
// A binary built without any of the flags (go run, go test) reports the
// development defaults. A binary with only some of them set is a broken
// release build and Initialize refuses it.
package build

import "errors"

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	info = Info{
		Name:        "audiobars",
		Description: "Turn live audio into visualizer bars and a tempo estimate",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

var (
	ErrMissingName    = errors.New("BuildName is required")
	ErrMissingTime    = errors.New("BuildTime is required")
	ErrMissingCommit  = errors.New("BuildCommit is required")
	ErrMissingVersion = errors.New("BuildVersion is required")
)

// Initialize copies the ldflags values into the build info. Call it once,
// early in main.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		return nil
	}
	switch {
	case buildName == "":
		return ErrMissingName
	case buildTime == "":
		return ErrMissingTime
	case buildCommit == "":
		return ErrMissingCommit
	case buildVersion == "":
		return ErrMissingVersion
	}

	info.Name = buildName
	info.Time = buildTime
	info.Commit = buildCommit
	info.Version = buildVersion
	return nil
}

// Get returns the current build information.
func Get() Info {
	return info
}
