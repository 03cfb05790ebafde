package platform

import "strings"

// Kernel identifies the operating system family a release is built for.
type Kernel int

const (
	Linux Kernel = iota
	MacOS
)

func (k Kernel) String() string {
	return [...]string{"linux", "macos"}[k]
}

// Scheme names a tool-specific spelling of the OS or architecture that does
// not follow any of the common conventions.
type Scheme string

const (
	CrocOS      Scheme = "croc-os"
	CrocArch    Scheme = "croc-arch"
	PascalUname Scheme = "pascal-uname"
	MuslTriplet Scheme = "musl-triplet"
	GoArch      Scheme = "go-arch"
)

// Tokens holds the strings used to fill release URL templates for the
// platform this binary was compiled for.
type Tokens struct {
	Kernel    Kernel
	OS        string // "linux", "macos"
	Uname     string // "linux", "darwin"
	ArchShort string // "amd64", "arm64"
	ArchFull  string // "x86_64", "aarch64"
	Triplet   string // "x86_64-unknown-linux-gnu"

	spellings map[Scheme]string
}

var current = build(kernel, osFull, osUname, osCroc, archShort, archFull, archCroc)

// Current returns the tokens of the compiled target.
func Current() Tokens {
	return current
}

func build(k Kernel, osName, uname, crocOS, short, full, crocArch string) Tokens {
	var triplet string
	switch k {
	case MacOS:
		triplet = full + "-apple-darwin"
	default:
		triplet = full + "-unknown-linux-gnu"
	}

	return Tokens{
		Kernel:    k,
		OS:        osName,
		Uname:     uname,
		ArchShort: short,
		ArchFull:  full,
		Triplet:   triplet,
		spellings: map[Scheme]string{
			CrocOS:      crocOS,
			CrocArch:    crocArch,
			PascalUname: strings.ToUpper(uname[:1]) + uname[1:],
			MuslTriplet: strings.Replace(triplet, "gnu", "musl", 1),
			GoArch:      short,
		},
	}
}

// Spelling returns the tool-specific spelling for s, or an empty string for
// an unknown scheme.
func (t Tokens) Spelling(s Scheme) string {
	return t.spellings[s]
}

// Expand fills the %OS%, %UNAME%, %ARCH%, %ARCH_FULL%, %TRIPLET% and
// %MUSL_TRIPLET% placeholders of a user supplied URL or path. The version
// placeholder is left alone.
func (t Tokens) Expand(s string) string {
	r := strings.NewReplacer(
		"%OS%", t.OS,
		"%UNAME%", t.Uname,
		"%ARCH%", t.ArchShort,
		"%ARCH_FULL%", t.ArchFull,
		"%MUSL_TRIPLET%", t.Spelling(MuslTriplet),
		"%TRIPLET%", t.Triplet,
	)
	return r.Replace(s)
}
