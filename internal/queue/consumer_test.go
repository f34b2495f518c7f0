package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsumer_HandleAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "seating.log")
	c := &Consumer{LogPath: path, Logger: zap.NewNop()}

	ev := SeatingAllocatedEvent{
		RunID: "r-1", ExamID: 4, Mode: "auto", Placed: 60, Overflow: 2, Capacity: 60,
		Venues: []VenueFillEvent{
			{VenueID: 1, Name: "Hall A", Capacity: 30, Used: 30},
			{VenueID: 2, Name: "Hall B", Capacity: 30, Used: 30, Overflow: 2},
		},
		AllocatedBy: "coe-1", AllocatedAt: "2026-10-16T09:00:00Z",
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "exam_id=4")
	require.Contains(t, lines[0], "venues=[Hall A:30/30,Hall B:30/30+2]")
}

func TestConsumer_HandleRejectsGarbage(t *testing.T) {
	c := &Consumer{LogPath: filepath.Join(t.TempDir(), "x.log"), Logger: zap.NewNop()}
	require.Error(t, c.Handle([]byte("{not json")))
}
