package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent_matchesRuntime(t *testing.T) {
	tokens := Current()

	switch runtime.GOOS {
	case "linux":
		assert.Equal(t, Linux, tokens.Kernel)
		assert.Equal(t, "linux", tokens.Uname)
		assert.Equal(t, "Linux", tokens.Spelling(PascalUname))
	case "darwin":
		assert.Equal(t, MacOS, tokens.Kernel)
		assert.Equal(t, "darwin", tokens.Uname)
		assert.Equal(t, "Darwin", tokens.Spelling(PascalUname))
	}
	assert.Equal(t, runtime.GOARCH, tokens.ArchShort)
	assert.Equal(t, runtime.GOARCH, tokens.Spelling(GoArch))
}

func TestBuild_triplets(t *testing.T) {
	linux := build(Linux, "linux", "linux", "Linux", "amd64", "x86_64", "64bit")
	assert.Equal(t, "x86_64-unknown-linux-gnu", linux.Triplet)
	assert.Equal(t, "x86_64-unknown-linux-musl", linux.Spelling(MuslTriplet))
	assert.Equal(t, "64bit", linux.Spelling(CrocArch))

	mac := build(MacOS, "macos", "darwin", "macOS", "arm64", "aarch64", "ARM64")
	assert.Equal(t, "aarch64-apple-darwin", mac.Triplet)
	assert.Equal(t, mac.Triplet, mac.Spelling(MuslTriplet))
	assert.Equal(t, "macOS", mac.Spelling(CrocOS))
	assert.Equal(t, "macos", mac.Kernel.String())
}

func TestExpand(t *testing.T) {
	tokens := build(Linux, "linux", "linux", "Linux", "arm64", "aarch64", "ARM64")

	got := tokens.Expand("https://example.test/%VERSION%/tool-%TRIPLET%-%MUSL_TRIPLET%-%UNAME%_%ARCH%-%ARCH_FULL%-%OS%")
	assert.Equal(t,
		"https://example.test/%VERSION%/tool-aarch64-unknown-linux-gnu-aarch64-unknown-linux-musl-linux_arm64-aarch64-linux",
		got,
	)
	assert.Empty(t, tokens.Spelling(Scheme("nope")))
}
