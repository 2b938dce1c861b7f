package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentBuild(t *testing.T) {
	info := CurrentBuild()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestCurrentBuild_LdflagsWin(t *testing.T) {
	old := Version
	Version = "1.4.0"
	defer func() { Version = old }()

	assert.Equal(t, "1.4.0", CurrentBuild().Version)
}
