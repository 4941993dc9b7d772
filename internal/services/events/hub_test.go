package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishWithoutSubscribersNeverBlocks(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Shutdown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Publish(Event{Type: TypeFileAdded, FileID: "f", At: time.Now()})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no subscribers")
	}
}

func TestHub_PublishAfterShutdownIsSafe(t *testing.T) {
	hub := NewHub()
	hub.Start()
	hub.Shutdown()

	// Must not panic or block.
	hub.Publish(Event{Type: TypeFileDeleted, FileID: "f", At: time.Now()})
}

func TestEvent_JSONShape(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(Event{
		Type:      TypeFileAdded,
		ProjectID: "proj-1",
		FileID:    "file-1",
		Name:      "notes.txt",
		At:        at,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "file_added", decoded["type"])
	assert.Equal(t, "proj-1", decoded["project_id"])
	assert.Equal(t, "file-1", decoded["file_id"])
	assert.Equal(t, "notes.txt", decoded["name"])

	// Empty optional fields stay out of the payload.
	payload, err = json.Marshal(Event{Type: TypeProjectCreated, ProjectID: "p", At: at})
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "file_id")
}
