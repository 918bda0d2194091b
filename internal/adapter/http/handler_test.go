package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/port"
	"github.com/bnema/reencoder/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type dispatcherMock struct {
	mock.Mock
}

func newDispatcherMock(t *testing.T) *dispatcherMock {
	m := &dispatcherMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *dispatcherMock) TriggerScan(ctx context.Context, root string) (*domain.ScanRecord, error) {
	ret := m.Called(ctx, root)
	var rec *domain.ScanRecord
	if v := ret.Get(0); v != nil {
		rec = v.(*domain.ScanRecord)
	}
	return rec, ret.Error(1)
}

func (m *dispatcherMock) ClaimNext() (string, bool) {
	ret := m.Called()
	return ret.String(0), ret.Bool(1)
}

func (m *dispatcherMock) SubmitResult(ctx context.Context, relPath string, body io.Reader, opts port.InstallOptions) (*domain.InstallRecord, error) {
	ret := m.Called(ctx, relPath, body, opts)
	if fn, ok := ret.Get(0).(func(io.Reader, port.InstallOptions) (*domain.InstallRecord, error)); ok {
		return fn(body, opts)
	}
	var rec *domain.InstallRecord
	if v := ret.Get(0); v != nil {
		rec = v.(*domain.InstallRecord)
	}
	return rec, ret.Error(1)
}

func (m *dispatcherMock) Status() domain.Status {
	return m.Called().Get(0).(domain.Status)
}

func (m *dispatcherMock) ResolveFile(relPath string) (string, error) {
	ret := m.Called(relPath)
	return ret.String(0), ret.Error(1)
}

func (m *dispatcherMock) History(ctx context.Context, limit int) (*domain.History, error) {
	ret := m.Called(ctx, limit)
	var h *domain.History
	if v := ret.Get(0); v != nil {
		h = v.(*domain.History)
	}
	return h, ret.Error(1)
}

const testMaxUpload = 1 << 20

func newTestServer(t *testing.T, d Dispatcher, verify bool) *Server {
	t.Helper()
	return NewServer(d, service.NewEventBus(), testMaxUpload, verify)
}

func do(s http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestStatus_PlainText(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("Status").Return(domain.Status{
		Root: "/library", TotalFiles: 10, ScannedFiles: 4, QueuedJobs: 3,
		InFlight: 1, Installed: 2, ProbeFailures: 1, Scanning: true,
	})
	s := newTestServer(t, d, false)

	rec := do(s, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "Status:\nTotal Files: 10\nScanned Files: 4\nFiles To Convert: 3\n"), body)
	assert.Contains(t, body, "In Flight: 1\n")
	assert.Contains(t, body, "Installed: 2\n")
	assert.Contains(t, body, "Scanning: true\n")
	assert.Contains(t, body, "Root: /library")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestStatus_JSON(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("Status").Return(domain.Status{Epoch: 2, TotalFiles: 5, QueuedJobs: 2})
	s := newTestServer(t, d, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(2), got.Epoch)
	assert.Equal(t, 5, got.TotalFiles)
	assert.Equal(t, 2, got.QueuedJobs)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, newDispatcherMock(t), false)
	rec := do(s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScan(t *testing.T) {
	t.Run("started", func(t *testing.T) {
		d := newDispatcherMock(t)
		d.On("TriggerScan", mock.Anything, "/media/library").
			Return(&domain.ScanRecord{ID: "scan-1", Epoch: 1}, nil).Once()
		s := newTestServer(t, d, false)

		rec := do(s, http.MethodPost, "/scan", strings.NewReader("  /media/library\n"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, MsgScanStarted, rec.Body.String())
		assert.Equal(t, "scan-1", rec.Header().Get("X-Scan-Id"))
	})

	t.Run("path missing", func(t *testing.T) {
		d := newDispatcherMock(t)
		d.On("TriggerScan", mock.Anything, "/does/not/exist").
			Return(nil, fmt.Errorf("%w: /does/not/exist", domain.ErrInvalidRoot)).Once()
		s := newTestServer(t, d, false)

		rec := do(s, http.MethodPost, "/scan", strings.NewReader("/does/not/exist"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, MsgPathMissing, rec.Body.String())
	})

	t.Run("wrong method", func(t *testing.T) {
		s := newTestServer(t, newDispatcherMock(t), false)
		rec := do(s, http.MethodGet, "/scan", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestRequest(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("ClaimNext").Return("shows/e01.mkv", true).Once()
	d.On("ClaimNext").Return("", false).Once()
	s := newTestServer(t, d, false)

	rec := do(s, http.MethodGet, "/request", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shows/e01.mkv", rec.Body.String())

	rec = do(s, http.MethodGet, "/request", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestConverted_Success(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("SubmitResult", mock.Anything, "shows/s01/e01.mkv", mock.Anything, mock.MatchedBy(func(o port.InstallOptions) bool {
		return o.ExpectedChecksum == "deadbeef" && o.Verify == nil
	})).Return(&domain.InstallRecord{RelPath: "shows/s01/e01.mkv"}, nil).Once()
	s := newTestServer(t, d, false)

	req := httptest.NewRequest(http.MethodPost, "/converted/shows/s01/e01.mkv", strings.NewReader("av1 bytes"))
	req.Header.Set(ChecksumHeader, " deadbeef ")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgUploadOK, rec.Body.String())
}

func TestConverted_VerifyEnabled(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("SubmitResult", mock.Anything, "a.mkv", mock.Anything, mock.MatchedBy(func(o port.InstallOptions) bool {
		return o.Verify != nil
	})).Return(&domain.InstallRecord{}, nil).Once()
	s := newTestServer(t, d, true)

	rec := do(s, http.MethodPost, "/converted/a.mkv", strings.NewReader("x"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConverted_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid path", err: fmt.Errorf("%w: escapes", domain.ErrInvalidPath), status: http.StatusBadRequest},
		{name: "not claimed", err: fmt.Errorf("%w: a.mkv", domain.ErrNotClaimed), status: http.StatusConflict},
		{name: "no scan yet", err: domain.ErrInvalidRoot, status: http.StatusConflict},
		{name: "storage", err: fmt.Errorf("%w: disk full", domain.ErrStorage), status: http.StatusInternalServerError},
		{name: "checksum", err: fmt.Errorf("%w: %w", domain.ErrStorage, domain.ErrChecksumMismatch), status: http.StatusInternalServerError},
		{name: "too large", err: fmt.Errorf("%w: stage upload: %w", domain.ErrStorage, &http.MaxBytesError{Limit: 1}), status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcherMock(t)
			d.On("SubmitResult", mock.Anything, "a.mkv", mock.Anything, mock.Anything).Return(nil, tt.err).Once()
			s := newTestServer(t, d, false)

			rec := do(s, http.MethodPost, "/converted/a.mkv", strings.NewReader("x"))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, MsgUploadFailed, rec.Body.String())
		})
	}
}

func TestConverted_ContentLengthOverLimit(t *testing.T) {
	d := newDispatcherMock(t)
	s := NewServer(d, service.NewEventBus(), 8, false)

	rec := do(s, http.MethodPost, "/converted/a.mkv", strings.NewReader(strings.Repeat("x", 16)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, MsgUploadFailed, rec.Body.String())
	d.AssertNotCalled(t, "SubmitResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConverted_StreamedBodyOverLimit(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("SubmitResult", mock.Anything, "a.mkv", mock.Anything, mock.Anything).
		Return(func(body io.Reader, _ port.InstallOptions) (*domain.InstallRecord, error) {
			_, err := io.ReadAll(body)
			return nil, fmt.Errorf("%w: stage upload: %w", domain.ErrStorage, err)
		}, nil).Once()
	s := NewServer(d, service.NewEventBus(), 8, false)

	req := httptest.NewRequest(http.MethodPost, "/converted/a.mkv", io.NopCloser(strings.NewReader(strings.Repeat("x", 64))))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "e01.mkv")
	require.NoError(t, os.WriteFile(abs, []byte("0123456789"), 0o644))

	d := newDispatcherMock(t)
	d.On("ResolveFile", "shows/e01.mkv").Return(abs, nil)
	d.On("ResolveFile", "missing.mkv").Return("", domain.ErrNotFound)
	s := newTestServer(t, d, false)

	t.Run("full body", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/files/shows/e01.mkv", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "0123456789", rec.Body.String())
		assert.Equal(t, "attachment; filename=e01.mkv", rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	})

	t.Run("range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/files/shows/e01.mkv", nil)
		req.Header.Set("Range", "bytes=2-5")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "2345", rec.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/files/missing.mkv", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHistory(t *testing.T) {
	history := &domain.History{
		Scans:    []domain.ScanRecord{{ID: "s1", Root: "/lib"}},
		Installs: []domain.InstallRecord{},
	}

	t.Run("default limit", func(t *testing.T) {
		d := newDispatcherMock(t)
		d.On("History", mock.Anything, defaultHistoryLimit).Return(history, nil).Once()
		rec := do(newTestServer(t, d, false), http.MethodGet, "/history", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var got domain.History
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Scans, 1)
		assert.Equal(t, "s1", got.Scans[0].ID)
	})

	t.Run("explicit and capped limit", func(t *testing.T) {
		d := newDispatcherMock(t)
		d.On("History", mock.Anything, 5).Return(history, nil).Once()
		d.On("History", mock.Anything, maxHistoryLimit).Return(history, nil).Once()
		s := newTestServer(t, d, false)

		assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/history?limit=5", nil).Code)
		assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/history?limit=100000", nil).Code)
	})

	t.Run("invalid limit", func(t *testing.T) {
		s := newTestServer(t, newDispatcherMock(t), false)
		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/history?limit=abc", nil).Code)
		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/history?limit=-1", nil).Code)
	})

	t.Run("ledger failure", func(t *testing.T) {
		d := newDispatcherMock(t)
		d.On("History", mock.Anything, defaultHistoryLimit).Return(nil, errors.New("database is locked")).Once()
		rec := do(newTestServer(t, d, false), http.MethodGet, "/history", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestDashboard(t *testing.T) {
	finished := time.Now()
	d := newDispatcherMock(t)
	d.On("Status").Return(domain.Status{Root: "/lib/<script>", TotalFiles: 42, QueuedJobs: 7})
	d.On("History", mock.Anything, 10).Return(&domain.History{
		Scans:    []domain.ScanRecord{{ID: "s1", Root: "/lib", StartedAt: finished, FinishedAt: &finished, TotalFiles: 42}},
		Installs: []domain.InstallRecord{{RelPath: "a & b.mkv", Size: 2048, Claimed: true, InstalledAt: finished}},
	}, nil)
	s := newTestServer(t, d, false)

	rec := do(s, http.MethodGet, "/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `<dd id="total_files">42</dd>`)
	assert.Contains(t, body, `<dd id="queued_jobs">7</dd>`)
	assert.Contains(t, body, "/lib/&lt;script&gt;")
	assert.NotContains(t, body, "/lib/<script>")
	assert.Contains(t, body, "a &amp; b.mkv")
	assert.Contains(t, body, "2.0 KB")
	assert.Contains(t, body, "finished")
}

func TestDashboard_HistoryErrorStillRenders(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("Status").Return(domain.Status{TotalFiles: 1})
	d.On("History", mock.Anything, 10).Return(nil, errors.New("database is locked"))
	s := newTestServer(t, d, false)

	rec := do(s, http.MethodGet, "/dashboard", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<dd id="total_files">1</dd>`)
}
