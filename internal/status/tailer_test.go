package status

import (
	"context"
	"testing"
	"time"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailer_DeliversUpdatesOnChange(t *testing.T) {
	dir := t.TempDir()
	tailer := NewTailer(dir, logger.Default())

	updates := make(chan *Document, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tailer.Run(ctx, func(doc *Document) { updates <- doc })

	require.NoError(t, Write(dir, &Document{Task: "first", Timestamp: time.Now().UTC()}))

	select {
	case doc := <-updates:
		assert.Equal(t, "first", doc.Task)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first status update")
	}

	require.NoError(t, Write(dir, &Document{Task: "second", Timestamp: time.Now().UTC()}))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case doc := <-updates:
			if doc.Task == "second" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for second status update")
		}
	}
}
