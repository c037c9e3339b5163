package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

func TestNewEvent(t *testing.T) {
	event := New(KindPublished, 5, 9, 3, "looks good")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, KindPublished, event.Kind)
	assert.Equal(t, int64(5), event.ExtensionID)
	assert.Equal(t, int64(9), event.VersionID)
	assert.Equal(t, int64(3), event.Actor)
	assert.Equal(t, "looks good", event.Message)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Minute)

	other := New(KindPublished, 5, 9, 3, "looks good")
	assert.NotEqual(t, event.ID, other.ID)
}

func TestWebhookEmitterDelivers(t *testing.T) {
	var received Event
	var signature string
	var payload []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		payload, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(payload, &received))
		signature = r.Header.Get("X-Hubcap-Signature")
		assert.Equal(t, "version.published", r.Header.Get("X-Hubcap-Event"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})
	emitter := NewWebhookEmitter(server.URL, "topsecret", time.Second, logger)

	event := New(KindPublished, 1, 2, 3, "")
	emitter.Emit(context.Background(), event)

	assert.Equal(t, event.ID, received.ID)
	assert.True(t, VerifySignature(payload, signature, "topsecret"))
	assert.False(t, VerifySignature(payload, signature, "wrong"))
}

func TestWebhookEmitterFailureIsSoft(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)
	emitter := NewWebhookEmitter("http://127.0.0.1:1", "", 200*time.Millisecond, logger)

	// Must not panic or block; failure only shows up in the log.
	emitter.Emit(context.Background(), New(KindDeleted, 1, 0, 0, ""))
	assert.Contains(t, buf.String(), "event delivery failed")
}

func TestLogEmitter(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	NewLogEmitter(logger).Emit(context.Background(), New(KindSubmitted, 7, 8, 9, ""))

	assert.Contains(t, buf.String(), "lifecycle event")
	assert.Contains(t, buf.String(), "version.submitted")
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.Emit(context.Background(), New(KindSubmitted, 1, 1, 1, ""))
	rec.Emit(context.Background(), New(KindPublished, 1, 1, 2, ""))

	assert.Equal(t, []Kind{KindSubmitted, KindPublished}, rec.Kinds())
}
