package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.NotEmpty(t, info.Commit)
}

func TestFillFromVCS(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "fedcba9876543210"},
		{Key: "vcs.time", Value: "2026-10-01T08:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	unset := Info{Commit: "unknown", BuildTime: "unknown"}
	fillFromVCS(&unset, settings)
	assert.Equal(t, "fedcba9876543210", unset.Commit)
	assert.Equal(t, "2026-10-01T08:00:00Z", unset.BuildTime)
	assert.True(t, unset.Modified)

	stamped := Info{Commit: "0123456789abcdef", BuildTime: "2026-09-30T00:00:00Z"}
	fillFromVCS(&stamped, settings)
	assert.Equal(t, "0123456789abcdef", stamped.Commit, "ldflags win over vcs")
	assert.Equal(t, "2026-09-30T00:00:00Z", stamped.BuildTime)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.4.0", Commit: "0123456789abcdef", BuildTime: "2026-03-01T09:00:00Z", GoVersion: "go1.25.0"}
	assert.Equal(t, "startupia v1.4.0 (0123456, built 2026-03-01T09:00:00Z, go1.25.0)", info.String())

	info.Modified = true
	assert.Contains(t, info.String(), "(0123456-dirty,")
}
