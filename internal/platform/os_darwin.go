package platform

const (
	kernel  = MacOS
	osFull  = "macos"
	osUname = "darwin"
	osCroc  = "macOS"
)
