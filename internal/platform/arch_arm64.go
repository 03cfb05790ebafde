package platform

const (
	archShort = "arm64"
	archFull  = "aarch64"
	archCroc  = "ARM64"
)
