// Package version holds build metadata for webcore. The variables are set
// with -ldflags at build time, e.g.
//
//	go build -ldflags "-X webcore/internal/version.Version=v1.4.0"
package version

import (
	"fmt"
	"os"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

var (
	// Version is a semantic version for tagged builds, otherwise a commit hash.
	Version = "unknown"

	// BuildDate is the ISO 8601 UTC build time.
	BuildDate = "unknown"

	// GitCommit is the source commit SHA.
	GitCommit = "unknown"
)

// Info holds build metadata and per-process identity.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns the build metadata. The instance id and hostname are
// resolved once per process.
func GetInfo() Info {
	once.Do(func() {
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			InstanceID: uuid.New().String(),
			Hostname:   hostname(),
		}
	})
	return info
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// IsRelease reports whether the binary was built from a release tag: a
// valid semantic version without a prerelease suffix.
func (i Info) IsRelease() bool {
	v, err := semver.NewVersion(i.Version)
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}

func (i Info) String() string {
	return fmt.Sprintf("webcore %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildDate)
}
