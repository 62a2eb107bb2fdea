package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GitCommit)
	assert.NotEmpty(t, info.BuildDate)
	assert.NotEmpty(t, info.InstanceID)
	assert.NotEmpty(t, info.Hostname)

	again := GetInfo()
	assert.Equal(t, info.InstanceID, again.InstanceID)
	assert.Equal(t, info.Hostname, again.Hostname)
}

func TestIsRelease(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"v1.2.3", true},
		{"1.0.0", true},
		{"2.1", true},
		{"v1.2.3-rc.1", false},
		{"1.0.0-beta", false},
		{"a1b2c3d", false},
		{"unknown", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, Info{Version: tt.version}.IsRelease())
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.2.3", GitCommit: "abc1234", BuildDate: "2026-02-21T10:00:00Z"}
	assert.Equal(t, "webcore v1.2.3 (commit: abc1234, built: 2026-02-21T10:00:00Z)", info.String())
}
