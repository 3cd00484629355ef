package cntio

import "runtime"

// Version is the semantic version of the cntio library.
const Version = "0.1.0"

// BuildInfo describes the build that produced this binary. GitCommit and
// BuildTime are empty unless injected at build time, e.g.:
//
//	go build -ldflags="-X github.com/proloyd/cntio.gitCommit=$(git rev-parse HEAD) \
//	  -X github.com/proloyd/cntio.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
}

// Build returns the version and build metadata of the library.
func Build() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: gitCommit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

var (
	gitCommit string
	buildTime string
)
