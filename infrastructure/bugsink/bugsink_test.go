package bugsink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTransport struct {
	events []*sentry.Event
}

func (t *captureTransport) Flush(time.Duration) bool { return true }
func (t *captureTransport) FlushWithContext(context.Context) bool { return true }
func (t *captureTransport) Configure(sentry.ClientOptions) {}
func (t *captureTransport) SendEvent(event *sentry.Event) { t.events = append(t.events, event) }
func (t *captureTransport) Close() {}

func TestInit_EmptyDSNDisables(t *testing.T) {
	require.NoError(t, Init("", "test"))
	assert.False(t, IsEnabled())

	CaptureError(errors.New("ignored"), nil)
	CapturePanic("ignored", nil)
	assert.True(t, Flush(time.Millisecond))
}

func TestCapture_SendsTaggedEvents(t *testing.T) {
	transport := &captureTransport{}
	require.NoError(t, sentry.Init(sentry.ClientOptions{
		Dsn:       "https://public@sentry.example/1",
		Transport: transport,
	}))
	enabled.Store(true)
	t.Cleanup(func() { enabled.Store(false) })

	CaptureError(errors.New("refresh persisted failed"), map[string]string{"platform": "TWITTER"})
	CapturePanic("nil map write", map[string]string{"content_id": "c1"})

	require.Len(t, transport.events, 2)
	assert.Equal(t, "TWITTER", transport.events[0].Tags["platform"])
	assert.Equal(t, sentry.LevelFatal, transport.events[1].Level)
	assert.Equal(t, "c1", transport.events[1].Tags["content_id"])
}
