package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/wkagent/internal/events"
)

func TestCollector_CountsEvents(t *testing.T) {
	reg := events.NewRegistry(nil)
	c := NewCollector(reg.Faults)
	c.Attach(reg)

	reg.Emit(events.Event{Name: events.TaskStart})
	reg.Emit(events.Event{Name: events.SerialTaskComplete})
	reg.Emit(events.Event{Name: events.SerialTaskComplete})
	reg.Emit(events.Event{Name: events.SerialTaskFailed})
	reg.Emit(events.Event{Name: events.MemoryCompress})
	reg.Emit(events.Event{Name: events.TaskComplete, Duration: 2 * time.Second})
	reg.Emit(events.Event{Name: events.TaskError})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues(string(events.TaskStart))))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.subTasks.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.subTasks.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasks.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasks.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.compressions))
	assert.Equal(t, 1, testutil.CollectAndCount(c.taskDuration))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(func() uint64 { return 3 })
	c.Observe(events.Event{Name: events.TaskComplete, Duration: time.Second})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `wkagent_tasks_total{outcome="success"} 1`), body)
	assert.Contains(t, body, "wkagent_listener_faults 3")
}
