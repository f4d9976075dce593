package version

import (
	"fmt"
	"io"
	"strings"
)

var (
	App       string = "AppGrant"
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
	BuildOS   string
	BuildArch string
)

// PrintVersion writes the version information to w
func PrintVersion(w io.Writer) {
	fmt.Fprint(w, String())
}

// String renders the version block, one field per line
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s version %s\n", App, GetVersion())
	if GitCommit != "" {
		fmt.Fprintf(&b, "Git commit: %s\n", getShortCommit())
	}
	if BuildTime != "" {
		fmt.Fprintf(&b, "Build time: %s\n", BuildTime)
	}
	if GoVersion != "" {
		fmt.Fprintf(&b, "Go version: %s\n", GoVersion)
	}
	if BuildOS != "" && BuildArch != "" {
		fmt.Fprintf(&b, "Built for: %s/%s\n", BuildOS, BuildArch)
	}
	return b.String()
}

func getShortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// GetVersion returns the release version, or "dev" for local builds
func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}
