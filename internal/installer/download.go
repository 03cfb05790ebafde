package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// ChunkSize bounds a single body read. Progress is reported after each one.
const ChunkSize = 1 << 20

// download fetches url fully into memory. Archive extraction needs random
// access to the whole payload, so nothing is streamed to disk.
func (i *Installer) download(ctx context.Context, name, version, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download returned status %d for %s", resp.StatusCode, url)
	}

	var buf []byte
	if resp.ContentLength > 0 {
		buf = make([]byte, 0, resp.ContentLength)
	}
	for {
		buf = slices.Grow(buf, ChunkSize)
		n, err := resp.Body.Read(buf[len(buf) : len(buf)+ChunkSize])
		buf = buf[:len(buf)+n]
		if n > 0 {
			i.send(ProgressMsg{
				Program: name,
				State:   StateDownloading,
				Version: version,
				Bytes:   int64(len(buf)),
				Total:   resp.ContentLength,
			})
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	}
}
