package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/bnema/reencoder/internal/adapter/http/templates"
	"github.com/bnema/reencoder/internal/adapter/http/validation"
	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/infrastructure/logger"
	"github.com/bnema/reencoder/internal/port"
)

// Response bodies workers depend on. They are matched verbatim.
const (
	MsgScanStarted  = "Scan started"
	MsgPathMissing  = "Path does not exist"
	MsgUploadOK     = "File uploaded successfully!"
	MsgUploadFailed = "Error saving file."
)

// ChecksumHeader optionally carries the hex BLAKE2b-256 digest of an upload.
const ChecksumHeader = "X-Content-Blake2b"

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	maxScanBodyBytes    = 4096
)

type Dispatcher interface {
	TriggerScan(ctx context.Context, root string) (*domain.ScanRecord, error)
	ClaimNext() (string, bool)
	SubmitResult(ctx context.Context, relPath string, body io.Reader, opts port.InstallOptions) (*domain.InstallRecord, error)
	Status() domain.Status
	ResolveFile(relPath string) (string, error)
	History(ctx context.Context, limit int) (*domain.History, error)
}

type Handlers struct {
	dispatch       Dispatcher
	maxUploadBytes int64
	verifyUploads  bool
}

func NewHandlers(dispatch Dispatcher, maxUploadBytes int64, verifyUploads bool) *Handlers {
	return &Handlers{
		dispatch:       dispatch,
		maxUploadBytes: maxUploadBytes,
		verifyUploads:  verifyUploads,
	}
}

// Status reports progress as plain text, or JSON when the client asks for it.
func (h *Handlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := h.dispatch.Status()

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, st)
			return
		}

		root := st.Root
		if root == "" {
			root = "(none)"
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "Status:\nTotal Files: %d\nScanned Files: %d\nFiles To Convert: %d\n"+
			"In Flight: %d\nInstalled: %d\nProbe Failures: %d\nScanning: %t\nRoot: %s",
			st.TotalFiles, st.ScannedFiles, st.QueuedJobs,
			st.InFlight, st.Installed, st.ProbeFailures, st.Scanning, root)
	}
}

func (h *Handlers) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := h.dispatch.History(r.Context(), 10)
		if err != nil {
			logger.Error.Printf("dashboard history error: %v", err)
			history = nil
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.Dashboard(h.dispatch.Status(), history).Render(r.Context(), w)
	}
}

// Scan starts a scan of the directory named by the request body.
func (h *Handlers) Scan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxScanBodyBytes))
		if err != nil {
			writeText(w, http.StatusBadRequest, MsgPathMissing)
			return
		}
		root := strings.TrimSpace(string(body))

		rec, err := h.dispatch.TriggerScan(r.Context(), root)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidRoot) {
				logger.Warn.Printf("scan rejected for %s: %v", logger.SanitizePath(root), err)
				writeText(w, http.StatusBadRequest, MsgPathMissing)
				return
			}
			logger.Error.Printf("scan of %s failed to start: %v", logger.SanitizePath(root), err)
			writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		w.Header().Set("X-Scan-Id", rec.ID)
		writeText(w, http.StatusOK, MsgScanStarted)
	}
}

// Request hands the next job to a worker. An empty body means no work.
func (h *Handlers) Request() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel, _ := h.dispatch.ClaimNext()
		writeText(w, http.StatusOK, rel)
	}
}

// Converted installs the uploaded body over the library file at {path...}.
func (h *Handlers) Converted() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := r.PathValue("path")

		if r.ContentLength > h.maxUploadBytes {
			logger.Warn.Printf("upload for %s rejected: %d bytes over limit", logger.SanitizePath(rel), r.ContentLength)
			writeText(w, http.StatusRequestEntityTooLarge, MsgUploadFailed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

		opts := port.InstallOptions{
			ExpectedChecksum: strings.TrimSpace(r.Header.Get(ChecksumHeader)),
		}
		if h.verifyUploads {
			opts.Verify = validation.VerifyVideo
		}

		if _, err := h.dispatch.SubmitResult(r.Context(), rel, r.Body, opts); err != nil {
			writeText(w, submitStatus(err), MsgUploadFailed)
			return
		}
		writeText(w, http.StatusOK, MsgUploadOK)
	}
}

func submitStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotClaimed), errors.Is(err, domain.ErrInvalidRoot):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Files streams a library file to a worker, with range support.
func (h *Handlers) Files() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := r.PathValue("path")

		abs, err := h.dispatch.ResolveFile(rel)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		f, err := os.Open(abs)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close() //nolint:errcheck

		info, err := f.Stat()
		if err != nil || !info.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Disposition", validation.ContentDisposition(rel))
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}

func (h *Handlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		history, err := h.dispatch.History(r.Context(), limit)
		if err != nil {
			logger.Error.Printf("history error: %v", err)
			http.Error(w, "Failed to load history", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("encode response: %v", err)
	}
}
