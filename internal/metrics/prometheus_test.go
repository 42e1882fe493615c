package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/limaJavier/seating/pkg/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	//** Arrange
	recorder := NewRecorder()

	//** Act
	recorder.ObserveRoom("E", model.RoomOutcome{Room: "R1", Status: model.StatusSuccess, Requested: 6, Seated: 6, Duration: 20 * time.Millisecond})
	recorder.ObserveRoom("E", model.RoomOutcome{Room: "R2", Status: model.StatusInfeasible, Requested: 4, Duration: time.Second})
	recorder.ObserveRoom("E", model.RoomOutcome{Room: "R3", Status: model.StatusSkipped})
	recorder.ObserveRoom("E", model.RoomOutcome{Room: "R4", Status: model.StatusSuccess, Requested: 4, Seated: 4, Duration: time.Millisecond})

	//** Assert
	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.rooms.WithLabelValues("SUCCESS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.rooms.WithLabelValues("INFEASIBLE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.rooms.WithLabelValues("SKIPPED")))
	assert.Equal(t, float64(10), testutil.ToFloat64(recorder.students.WithLabelValues("seated")))
	assert.Equal(t, float64(4), testutil.ToFloat64(recorder.students.WithLabelValues("unseated")))
	assert.Equal(t, 2, testutil.CollectAndCount(recorder.duration))
}

func TestWriteTextfile(t *testing.T) {
	//** Arrange
	recorder := NewRecorder()
	recorder.ObserveRoom("E", model.RoomOutcome{Room: "R1", Status: model.StatusSuccess, Requested: 1, Seated: 1})
	path := filepath.Join(t.TempDir(), "seating.prom")

	//** Act
	require.NoError(t, recorder.WriteTextfile(path))

	//** Assert
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `seating_rooms_total{status="SUCCESS"} 1`)
	assert.Contains(t, string(content), "seating_room_solve_seconds_bucket")
}
