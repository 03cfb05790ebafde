package installer

import (
	"errors"
	"fmt"
)

// Error classes. Use errors.Is on any error returned by Install to tell
// them apart.
var (
	ErrConfig       = errors.New("configuration error")
	ErrNetwork      = errors.New("network error")
	ErrArchive      = errors.New("archive error")
	ErrFilesystem   = errors.New("filesystem error")
	ErrVerification = errors.New("verification error")
)

// Stage is the pipeline step an install failed in.
type Stage int

const (
	StageResolve Stage = iota
	StageDownload
	StageExtract
	StageInstall
	StagePermission
	StageVerify
)

func (s Stage) String() string {
	return [...]string{
		"resolve", "download", "extract", "install", "permission", "verify",
	}[s]
}

// Error reports which tool failed, where, and why.
type Error struct {
	Tool  string
	Stage Stage
	Kind  error // one of the Err* classes
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Tool, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error class as well as anything in the wrapped chain.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}
