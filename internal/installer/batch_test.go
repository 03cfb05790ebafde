package installer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsaleh/dot/internal/catalog"
	"github.com/dsaleh/dot/internal/installer"
)

func TestInstallAll_continuesAfterFailure(t *testing.T) {
	srv, requested := serve(t, map[string][]byte{
		"/good": okScript,
		"/also": okScript,
	})
	inst, dir := newInstaller(t)

	jobs := []installer.Job{
		{ID: "missing", Descriptor: catalog.Descriptor{Name: "missing", URL: srv.URL + "/missing", VersionArg: "-V"}},
		{ID: "good", Descriptor: catalog.Descriptor{Name: "good", URL: srv.URL + "/good", VersionArg: "-V"}},
		{ID: "also", Descriptor: catalog.Descriptor{Name: "also", URL: srv.URL + "/also", VersionArg: "-V"}},
	}
	err := inst.InstallAll(context.Background(), jobs)
	require.Error(t, err)
	assert.ErrorIs(t, err, installer.ErrNetwork)
	assert.Contains(t, err.Error(), "missing")

	assert.Equal(t, []string{"/missing", "/good", "/also"}, requested())
	assert.NoFileExists(t, filepath.Join(dir, "missing"))
	assert.FileExists(t, filepath.Join(dir, "good"))
	assert.FileExists(t, filepath.Join(dir, "also"))
}

func TestInstallAll_reportsEveryFailure(t *testing.T) {
	srv, _ := serve(t, map[string][]byte{"/bad": failScript})
	inst, _ := newInstaller(t)

	err := inst.InstallAll(context.Background(), []installer.Job{
		{ID: "a", Descriptor: catalog.Descriptor{Name: "a", URL: srv.URL + "/a", VersionArg: "-V"}},
		{ID: "bad", Descriptor: catalog.Descriptor{Name: "bad", URL: srv.URL + "/bad", VersionArg: "-V"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, installer.ErrNetwork)
	assert.ErrorIs(t, err, installer.ErrVerification)
}

func TestInstallAll_rejectsDuplicateNames(t *testing.T) {
	srv, requested := serve(t, map[string][]byte{"/tool": okScript})
	inst, dir := newInstaller(t)

	d := catalog.Descriptor{Name: "tool", URL: srv.URL + "/tool", VersionArg: "-V"}
	err := inst.InstallAll(context.Background(), []installer.Job{
		{ID: "one", Descriptor: d},
		{ID: "two", Descriptor: d},
	})
	assert.ErrorIs(t, err, installer.ErrConfig)
	assert.Empty(t, requested())
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstallAll_stopsWhenCancelled(t *testing.T) {
	srv, requested := serve(t, map[string][]byte{"/tool": okScript})
	inst, _ := newInstaller(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := inst.InstallAll(ctx, []installer.Job{
		{ID: "tool", Descriptor: catalog.Descriptor{Name: "tool", URL: srv.URL + "/tool", VersionArg: "-V"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, requested())
}

func TestRun_forwardsProgress(t *testing.T) {
	srv, _ := serve(t, map[string][]byte{"/good": okScript})

	var upstream int
	inst, _ := newInstaller(t, installer.WithProgress(func(installer.ProgressMsg) { upstream++ }))

	ch := inst.Run(context.Background(), []installer.Job{
		{ID: "bad", Descriptor: catalog.Descriptor{Name: "bad", URL: srv.URL + "/bad", VersionArg: "-V"}},
		{ID: "good", Descriptor: catalog.Descriptor{Name: "good", URL: srv.URL + "/good", VersionArg: "-V"}},
	})

	final := map[string]installer.State{}
	var count int
	for msg := range ch {
		count++
		final[msg.Program] = msg.State
	}
	assert.Equal(t, installer.StateError, final["bad"])
	assert.Equal(t, installer.StateDone, final["good"])
	assert.Equal(t, count, upstream)
}

func TestRun_duplicateNames(t *testing.T) {
	inst, _ := newInstaller(t)
	d := catalog.Descriptor{Name: "tool", URL: "http://127.0.0.1:1/tool", VersionArg: "-V"}

	var msgs []installer.ProgressMsg
	for msg := range inst.Run(context.Background(), []installer.Job{{ID: "a", Descriptor: d}, {ID: "b", Descriptor: d}}) {
		msgs = append(msgs, msg)
	}
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, installer.StateError, m.State)
		assert.ErrorIs(t, m.Err, installer.ErrConfig)
	}
}

func TestRun_cancelWithoutReader(t *testing.T) {
	// Trickles the body in flushed pieces, then stalls until the client goes away.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for n := 0; n < 32; n++ {
			w.Write([]byte("################"))
			w.(http.Flusher).Flush()
			time.Sleep(5 * time.Millisecond)
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	var sent atomic.Int64
	var failed atomic.Bool
	inst, _ := newInstaller(t, installer.WithProgress(func(m installer.ProgressMsg) {
		sent.Add(1)
		if m.State == installer.StateError {
			failed.Store(true)
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := inst.Run(ctx, []installer.Job{
		{ID: "tool", Descriptor: catalog.Descriptor{Name: "tool", URL: srv.URL + "/tool", VersionArg: "-V"}},
	})

	// More messages than the channel buffers, none of them received.
	require.Eventually(t, func() bool { return sent.Load() > 8 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	assert.Eventually(t, failed.Load, 5*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 5*time.Millisecond)
}
