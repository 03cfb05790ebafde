package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dsaleh/dot/internal/catalog"
)

// Job is one tool of a batch install.
type Job struct {
	ID         string
	Descriptor catalog.Descriptor
	Version    string
}

// CheckJobs rejects batches in which two tools would land on the same path.
func CheckJobs(jobs []Job) error {
	seen := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if prev, ok := seen[j.Descriptor.Name]; ok {
			return fmt.Errorf("%w: %s and %s both install %q", ErrConfig, prev, j.ID, j.Descriptor.Name)
		}
		seen[j.Descriptor.Name] = j.ID
	}
	return nil
}

// InstallAll installs jobs one after another. A failing tool does not stop
// the batch; every failure is returned joined once all tools were tried.
// Cancelling ctx stops before the next tool.
func (i *Installer) InstallAll(ctx context.Context, jobs []Job) error {
	if err := CheckJobs(jobs); err != nil {
		return err
	}

	var errs []error
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := i.Install(ctx, j.Descriptor, j.Version); err != nil {
			i.logger.Error("Install failed", "id", j.ID, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run performs InstallAll in the background and forwards every progress
// message to the returned channel, which is closed when the batch is over.
// A batch rejected by CheckJobs yields one StateError message per job.
// Once ctx is done messages nobody receives are dropped, so an abandoned
// channel never blocks the batch.
func (i *Installer) Run(ctx context.Context, jobs []Job) <-chan ProgressMsg {
	ch := make(chan ProgressMsg, len(jobs)*8)
	forward := func(msg ProgressMsg) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}

	inst := *i
	upstream := i.progress
	inst.progress = func(msg ProgressMsg) {
		if upstream != nil {
			upstream(msg)
		}
		forward(msg)
	}

	go func() {
		defer close(ch)
		if err := CheckJobs(jobs); err != nil {
			for _, j := range jobs {
				forward(ProgressMsg{Program: j.Descriptor.Name, State: StateError, Version: j.Version, Err: err})
			}
			return
		}
		_ = inst.InstallAll(ctx, jobs)
	}()

	return ch
}
