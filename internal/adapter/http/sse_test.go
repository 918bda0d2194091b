package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bnema/reencoder/internal/domain"
	"github.com/bnema/reencoder/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	var data []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name == "" && len(data) == 0 {
				continue
			}
			ev.data = strings.Join(data, "\n")
			return ev
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestSSEWrite_MultiLine(t *testing.T) {
	rec := httptest.NewRecorder()
	sseWrite(rec, "status", "line one\nline two")

	assert.Equal(t, "event: status\ndata: line one\ndata: line two\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestEvents_StreamsStatusChanges(t *testing.T) {
	d := newDispatcherMock(t)
	d.On("Status").Return(domain.Status{TotalFiles: 3, QueuedJobs: 2})
	bus := service.NewEventBus()
	srv := httptest.NewServer(NewServer(d, bus, testMaxUpload, false))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	first := readEvent(t, reader)
	assert.Equal(t, "status", first.name)
	var st domain.Status
	require.NoError(t, json.Unmarshal([]byte(first.data), &st))
	assert.Equal(t, 3, st.TotalFiles)
	assert.Equal(t, 2, st.QueuedJobs)

	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	bus.Publish(service.Event{Type: service.EventClaimed, Status: domain.Status{QueuedJobs: 1, InFlight: 1}})

	next := readEvent(t, reader)
	assert.Equal(t, service.EventClaimed, next.name)
	require.NoError(t, json.Unmarshal([]byte(next.data), &st))
	assert.Equal(t, 1, st.InFlight)

	cancel()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}
