// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/azure/blockcache/pkg/metrics"
	"github.com/rs/zerolog"
)

// httpReader reads a remote file with HTTP range requests.
type httpReader struct {
	ctx     context.Context
	url     string
	header  http.Header
	client  *http.Client
	log     zerolog.Logger
	metrics metrics.Metrics
}

var _ Reader = &httpReader{}

// Log returns the logger with context for this reader.
func (r *httpReader) Log() *zerolog.Logger {
	return &r.log
}

// PreadRemote is like pread but to a remote file.
func (r *httpReader) PreadRemote(buf []byte, offset int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	start := offset
	end := int64(len(buf)) + offset - 1

	log := r.log.With().Str("operation", "preadremote").Int64("start", start).Int64("end", end).Logger()

	req, err := r.remoteRequest(start, end)
	if err != nil {
		return -1, err
	}

	startTime := time.Now()
	defer func() {
		r.metrics.RecordOperation("upstream_pread", time.Since(startTime).Seconds())
	}()
	return preadRemote(log, req, r.client, offset, buf)
}

// FstatRemote stats a remote file.
func (r *httpReader) FstatRemote() (int64, error) {
	log := r.log.With().Str("operation", "fstatremote").Logger()

	req, err := r.remoteRequest(0, 0)
	if err != nil {
		return -1, err
	}

	startTime := time.Now()
	defer func() {
		r.metrics.RecordOperation("upstream_fstat", time.Since(startTime).Seconds())
	}()
	return fstatRemote(log, req, r.client)
}

// fstatRemote stats the file.
func fstatRemote(log zerolog.Logger, req *http.Request, client *http.Client) (int64, error) {
	log.Debug().Str("url", req.URL.String()).Str("range", req.Header.Get("Range")).Msg("reader fstatRemote start")
	defer log.Debug().Msg("reader fstatRemote stop")

	resp, err := client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("reader fstatRemote error")
		return 0, Error{resp, err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return resp.ContentLength, nil
	}

	if resp.StatusCode == http.StatusPartialContent {
		l := resp.ContentLength
		rs := resp.Header.Get("Content-Range")
		if rs == "" {
			return l, nil
		}

		pos := strings.LastIndexByte(rs, '/')
		if pos < 0 {
			return l, nil
		}

		// The total may be "*" when the server does not know it.
		if total, err := strconv.ParseInt(rs[pos+1:], 10, 64); err == nil {
			return total, nil
		}
		return l, nil
	}

	log.Error().Int("status", resp.StatusCode).Msg("reader fstatRemote error")
	return 0, Error{resp, fmt.Errorf("unexpected response code: %d", resp.StatusCode)}
}

// preadRemote reads the file at offset.
// A server that ignores the range and sends the whole file is read from the offset on.
func preadRemote(log zerolog.Logger, req *http.Request, client *http.Client, offset int64, buf []byte) (int, error) {
	log.Debug().Str("url", req.URL.String()).Str("range", req.Header.Get("Range")).Msg("reader preadRemote start")
	statusCode := -1
	s := time.Now()
	defer func() {
		log.Debug().Int("status", statusCode).Dur("duration", time.Since(s)).Msg("reader preadRemote stop")
	}()

	resp, err := client.Do(req)
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if err != nil {
		detailedErr := Error{resp, err}
		log.Error().Err(detailedErr).Str("url", req.URL.String()).Str("range", req.Header.Get("Range")).Msg("reader preadRemote error")
		return 0, detailedErr
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if offset > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, offset); err != nil {
				if err == io.EOF {
					return 0, io.EOF
				}
				return 0, Error{resp, err}
			}
		}
	case http.StatusPartialContent:
		rs := resp.Header.Get("Content-Range")
		if start, ok := contentRangeStart(rs); !ok || start != offset {
			log.Error().Str("contentRange", rs).Msg("reader preadRemote error")
			return 0, Error{resp, fmt.Errorf("content range %q does not start at offset %d", rs, offset)}
		}
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	default:
		log.Error().Int("status", resp.StatusCode).Msg("reader preadRemote error")
		return 0, Error{resp, fmt.Errorf("unexpected response code: %d", resp.StatusCode)}
	}

	n, err := io.ReadFull(resp.Body, buf)
	if err == io.ErrUnexpectedEOF {
		// Short read at the end of the file.
		err = io.EOF
	}
	return n, err
}

// contentRangeStart returns the first byte of a "bytes first-last/total" content range.
func contentRangeStart(rs string) (int64, bool) {
	rs, ok := strings.CutPrefix(rs, "bytes ")
	if !ok {
		return 0, false
	}
	first, _, ok := strings.Cut(rs, "-")
	if !ok {
		return 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}

// remoteRequest creates a new HTTP request to the remote server.
func (r *httpReader) remoteRequest(start, end int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}

	for key, vals := range r.header {
		vals2 := make([]string, len(vals))
		copy(vals2, vals)
		req.Header[key] = vals2
	}

	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	return req, nil
}

// NewHTTPReader creates a reader for the object at url. Requests carry a copy of header.
// A nil client means http.DefaultClient.
func NewHTTPReader(ctx context.Context, client *http.Client, url string, header http.Header) Reader {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpReader{
		ctx:     ctx,
		url:     url,
		header:  header.Clone(),
		client:  client,
		log:     zerolog.Ctx(ctx).With().Str("component", "remote").Str("url", url).Logger(),
		metrics: metrics.FromContext(ctx),
	}
}
