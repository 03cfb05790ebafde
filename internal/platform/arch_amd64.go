package platform

const (
	archShort = "amd64"
	archFull  = "x86_64"
	archCroc  = "64bit"
)
