package platform

const (
	kernel  = Linux
	osFull  = "linux"
	osUname = "linux"
	osCroc  = "Linux"
)
