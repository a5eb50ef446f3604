package utils

import (
	"os/exec"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	develBuildVersion  = "(devel)"
	gitExecutableName  = "git"
	gitDescribeCommand = "describe"
)

// Version is injected at build time with -ldflags "-X ...utils.Version=v1.2.3".
var Version = ""

// GetApplicationVersion reports the codeprompt version. An injected Version wins,
// then Go module build info, then `git describe` run from the nearest repository.
func GetApplicationVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != develBuildVersion {
		return buildInfo.Main.Version
	}

	describeArgumentSets := [][]string{
		{gitDescribeCommand, "--tags", "--exact-match"},
		{gitDescribeCommand, "--tags", "--long", "--dirty"},
	}
	for _, describeArguments := range describeArgumentSets {
		// #nosec G204
		describeOutput, describeError := exec.Command(gitExecutableName, describeArguments...).Output()
		if describeError == nil && len(describeOutput) > 0 {
			return strings.TrimSpace(string(describeOutput))
		}
	}

	return unknownVersion
}
