package contracts

import (
	"fmt"
	"runtime"
)

const (
	Version = "0.3.0"

	// APIVersion names the /api/v1 routes and the progress event schema.
	APIVersion = "v1"
)

// Stamped by build.go through -ldflags -X.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the body of GET /api/v1/version.
type VersionInfo struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		APIVersion: APIVersion,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersionString is the short form used in startup logs.
func GetVersionString() string {
	return "statementcheck v" + Version
}

// GetFullVersionString is printed by the analyze command's -version flag.
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (api %s, commit %s, built %s, %s, %s)",
		GetVersionString(), info.APIVersion, info.GitCommit, info.BuildTime, info.GoVersion, info.Platform)
}
