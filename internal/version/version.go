// Package version holds build information for funcscan.
//
// The variables are injected at build time:
//
//	-ldflags "-X funcscan/internal/version.version=v1.0.0 -X funcscan/internal/version.commit=abc123 -X funcscan/internal/version.buildTime=2026-01-01T00:00:00Z"
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"
)

//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name of the application displayed in version output.
const ApplicationName = "funcscan CLI"

// Default values used when build information is not available.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

const (
	LabelVersion = "Version"
	LabelCommit  = "Commit"
	LabelBuilt   = "Built"
	LabelGo      = "Go"
)

// VersionInfo is the build information of the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the current build information with defaults filled in.
func GetVersion() *VersionInfo {
	return &VersionInfo{
		Version:   withDefault(version, DefaultVersion),
		Commit:    withDefault(commit, DefaultCommit),
		BuildTime: withDefault(buildTime, DefaultBuildTime),
		GoVersion: runtime.Version(),
	}
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// FormatShort returns only the version number.
func (vi *VersionInfo) FormatShort() string {
	return vi.Version
}

// FormatFull returns the application name followed by one labelled line per field.
func (vi *VersionInfo) FormatFull() string {
	var b strings.Builder
	b.WriteString(ApplicationName + "\n")
	fmt.Fprintf(&b, "%s: %s\n", LabelVersion, vi.Version)
	fmt.Fprintf(&b, "%s: %s\n", LabelCommit, vi.Commit)
	fmt.Fprintf(&b, "%s: %s\n", LabelBuilt, vi.BuildTime)
	fmt.Fprintf(&b, "%s: %s\n", LabelGo, vi.GoVersion)
	return b.String()
}

// Write writes the short or full format to w.
func (vi *VersionInfo) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, vi.FormatShort())
		return err
	}
	_, err := io.WriteString(w, vi.FormatFull())
	return err
}

// WriteJSON writes the build information as one JSON object.
func (vi *VersionInfo) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vi)
}

// SetBuildVars overrides the build-time variables. Used by tests.
func SetBuildVars(ver, com, bt string) {
	version = ver
	commit = com
	buildTime = bt
}

// ResetBuildVars clears the build-time variables.
func ResetBuildVars() {
	SetBuildVars("", "", "")
}

// IsDevelopment reports whether this is an unversioned build.
func (vi *VersionInfo) IsDevelopment() bool {
	return vi.Version == DefaultVersion
}

// GetBuildTime parses the build time, returning the zero time when it is
// unknown or unparsable.
func (vi *VersionInfo) GetBuildTime() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, vi.BuildTime); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
