package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/dsaleh/dot/internal/catalog"
	"github.com/dsaleh/dot/internal/extractor"
)

// State represents the current install state of a program.
type State int

const (
	StatePending State = iota
	StateResolving
	StateDownloading
	StateExtracting
	StateInstalling
	StateVerifying
	StateDone
	StateError
)

func (s State) String() string {
	return [...]string{
		"pending", "resolving", "downloading", "extracting",
		"installing", "verifying", "done", "error",
	}[s]
}

// ProgressMsg is emitted on every state transition and after every
// downloaded chunk.
type ProgressMsg struct {
	Program string
	State   State
	Version string
	Bytes   int64 // downloaded so far
	Total   int64 // Content-Length, -1 when unknown
	Err     error
}

// ExecMode is applied to every installed binary.
const ExecMode fs.FileMode = 0o777

// Installer places binaries into a single destination directory.
type Installer struct {
	dir      string
	client   *http.Client
	logger   *slog.Logger
	progress func(ProgressMsg)
	stdout   io.Writer
	stderr   io.Writer
}

// Option configures an Installer.
type Option func(*Installer)

func WithHTTPClient(c *http.Client) Option {
	return func(i *Installer) { i.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// WithProgress registers a callback receiving every ProgressMsg.
func WithProgress(fn func(ProgressMsg)) Option {
	return func(i *Installer) { i.progress = fn }
}

// WithOutput sets where the version check of an installed binary writes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(i *Installer) { i.stdout, i.stderr = stdout, stderr }
}

// New returns an Installer writing into dir.
func New(dir string, opts ...Option) *Installer {
	i := &Installer{
		dir:    dir,
		client: http.DefaultClient,
		logger: slog.Default(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Installer) send(msg ProgressMsg) {
	if i.progress != nil {
		i.progress(msg)
	}
}

func (i *Installer) fail(d catalog.Descriptor, version string, stage Stage, kind, err error) error {
	e := &Error{Tool: d.Name, Stage: stage, Kind: kind, Err: err}
	i.send(ProgressMsg{Program: d.Name, State: StateError, Version: version, Err: e})
	return e
}

// Install downloads d at version and places it at dir/d.Name. The final
// path only ever holds a complete file: the binary is written next to it
// and renamed over it. A failing version check leaves the new binary in
// place and reports ErrVerification.
func (i *Installer) Install(ctx context.Context, d catalog.Descriptor, version string) error {
	i.send(ProgressMsg{Program: d.Name, State: StateResolving, Version: version})
	if err := d.Validate(); err != nil {
		return i.fail(d, version, StageResolve, ErrConfig, err)
	}
	if d.HasPlaceholder() && version == "" {
		return i.fail(d, version, StageResolve, ErrConfig,
			fmt.Errorf("url contains %s but no version was given", catalog.VersionPlaceholder))
	}
	url := d.URLFor(version)

	i.logger.Info("Downloading binary", "name", d.Name, "url", url)
	i.send(ProgressMsg{Program: d.Name, State: StateDownloading, Version: version, Total: -1})
	start := time.Now()
	data, err := i.download(ctx, d.Name, version, url)
	if err != nil {
		return i.fail(d, version, StageDownload, ErrNetwork, err)
	}
	i.logger.Info("Finish downloading", "name", d.Name,
		"size", humanize.Bytes(uint64(len(data))), "elapsed", time.Since(start).Round(time.Millisecond))

	payload, cleanup, err := i.unpack(d, version, data)
	defer cleanup()
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return i.fail(d, version, e.Stage, e.Kind, e.Err)
		}
		return i.fail(d, version, StageExtract, ErrArchive, err)
	}

	i.send(ProgressMsg{Program: d.Name, State: StateInstalling, Version: version})
	final := filepath.Join(i.dir, d.Name)
	if err := i.place(final, payload); err != nil {
		return i.fail(d, version, StageInstall, ErrFilesystem, err)
	}
	if err := os.Chmod(final, ExecMode); err != nil {
		return i.fail(d, version, StagePermission, ErrFilesystem, err)
	}

	i.send(ProgressMsg{Program: d.Name, State: StateVerifying, Version: version})
	i.logger.Info("Installed binary", "name", d.Name, "path", final, "arg", d.VersionArg)
	if err := i.verify(ctx, final, d.VersionArg); err != nil {
		return i.fail(d, version, StageVerify, ErrVerification, err)
	}

	i.send(ProgressMsg{Program: d.Name, State: StateDone, Version: version})
	return nil
}

// unpack turns the downloaded payload into the executable bytes, reading
// them out of a scratch directory for unpacking archives. The returned
// cleanup is always safe to call.
func (i *Installer) unpack(d catalog.Descriptor, version string, data []byte) ([]byte, func(), error) {
	noop := func() {}
	if d.Archive == nil {
		return data, noop, nil
	}

	i.logger.Info("Extracting binary", "name", d.Name, "archive", d.Archive.Kind.String())
	i.send(ProgressMsg{Program: d.Name, State: StateExtracting, Version: version})

	if !d.Archive.Kind.Unpacks() {
		out, err := extractor.Extract(d.Archive.Kind, data, "")
		return out, noop, err
	}

	scratch, err := os.MkdirTemp("", "dot-"+d.Name+"-*")
	if err != nil {
		return nil, noop, &Error{Stage: StageExtract, Kind: ErrFilesystem, Err: err}
	}
	cleanup := func() {
		if err := os.RemoveAll(scratch); err != nil {
			i.logger.Warn("Cannot remove scratch directory", "path", scratch, "err", err)
		}
	}

	if _, err := extractor.Extract(d.Archive.Kind, data, scratch); err != nil {
		return nil, cleanup, err
	}
	out, err := readBinary(scratch, d.BinaryPath(".", version))
	return out, cleanup, err
}

// readBinary reads rel from dir without following links out of it.
func readBinary(dir, rel string) ([]byte, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, &Error{Stage: StageExtract, Kind: ErrFilesystem, Err: err}
	}
	defer root.Close()

	f, err := root.Open(rel)
	if err != nil {
		return nil, fmt.Errorf("binary %s not found in archive: %w", rel, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s in archive is not a regular file", rel)
	}
	out, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return out, nil
}

// place writes payload to a temporary file in the destination directory
// and renames it over final.
func (i *Installer) place(final string, payload []byte) error {
	if err := os.MkdirAll(i.dir, 0755); err != nil {
		return err
	}

	tmp := filepath.Join(i.dir, "."+filepath.Base(final)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o700)
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(payload); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		return err
	}
	renamed = true
	return nil
}

// verify runs the installed binary with its version arguments. Output is
// passed through, only the exit status matters.
func (i *Installer) verify(ctx context.Context, path, versionArg string) error {
	args, err := shlex.Split(versionArg)
	if err != nil {
		return fmt.Errorf("parse version arg %q: %w", versionArg, err)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = i.stdout
	cmd.Stderr = i.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", filepath.Base(path), versionArg, err)
	}
	return nil
}
