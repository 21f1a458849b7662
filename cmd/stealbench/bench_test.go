package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Swind/go-worksteal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdealDuration(t *testing.T) {
	assert.Equal(t, 30*time.Millisecond, idealDuration(10, 4, 10*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, idealDuration(10, 1, 10*time.Millisecond))
	assert.Equal(t, 10*time.Millisecond, idealDuration(4, 4, 10*time.Millisecond))
	assert.Equal(t, time.Duration(0), idealDuration(10, 4, 0))
}

func TestScenario_Validate(t *testing.T) {
	valid := scenario{Tasks: 1, Producers: 1}
	require.NoError(t, valid.validate())

	for name, sc := range map[string]scenario{
		"negative threads": {Threads: -1, Tasks: 1, Producers: 1},
		"no tasks":         {Tasks: 0, Producers: 1},
		"negative sleep":   {Tasks: 1, Producers: 1, TaskDuration: -time.Second},
		"no producers":     {Tasks: 1, Producers: 0},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, sc.validate())
		})
	}
}

// TestRunScenario_Producers verifies results from external producers
// Given: 4 producers submitting 200 tasks to a 3-worker pool
// When: The scenario runs
// Then: Every result is 3 and shutdown is clean
func TestRunScenario_Producers(t *testing.T) {
	rep, err := runScenario(context.Background(), scenario{
		Threads:         3,
		Tasks:           200,
		Producers:       4,
		Routing:         core.RoutingAffinity,
		ShutdownTimeout: time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, 200, rep.Correct)
	assert.Zero(t, rep.Wrong)
	assert.Zero(t, rep.Failed)
	assert.NoError(t, rep.ShutdownErr)
	assert.False(t, rep.Stats.Running)
	assert.Equal(t, uint64(200), rep.Stats.Submitted)
}

// TestRunScenario_SkewSteals verifies skewed load is spread by stealing
// Given: 40 sleeping tasks all submitted from inside one worker of four
// When: The scenario runs
// Then: Results are correct, peers stole work and wall time beats serial time
func TestRunScenario_SkewSteals(t *testing.T) {
	const tasks = 40
	const d = 5 * time.Millisecond

	var observed *core.Pool
	rep, err := runScenario(context.Background(), scenario{
		Threads:         4,
		Tasks:           tasks,
		TaskDuration:    d,
		Producers:       1,
		Skew:            true,
		ShutdownTimeout: time.Second,
		Observe:         func(p *core.Pool) { observed = p },
	})
	require.NoError(t, err)
	require.NotNil(t, observed)

	assert.Equal(t, tasks, rep.Correct)
	assert.Positive(t, rep.Stats.Stolen)
	assert.Less(t, rep.Elapsed, time.Duration(tasks)*d*3/4)
	assert.Equal(t, idealDuration(tasks, 4, d), rep.Ideal)
}

func TestRunScenario_RandomRouting(t *testing.T) {
	rep, err := runScenario(context.Background(), scenario{
		Threads:   2,
		Tasks:     50,
		Producers: 2,
		Routing:   core.RoutingRandom,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, rep.Correct)
	assert.Equal(t, "random", rep.Stats.Routing)
}

func TestRunScenario_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runScenario(ctx, scenario{Threads: 1, Tasks: 10, Producers: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReport_Print(t *testing.T) {
	var buf bytes.Buffer
	report{
		Threads: 2,
		Tasks:   4,
		Correct: 4,
		Elapsed: 20 * time.Millisecond,
		Ideal:   20 * time.Millisecond,
		Stats: core.PoolStats{WorkerStats: []core.WorkerStats{
			{WorkerID: 0, Executed: 2},
			{WorkerID: 1, Executed: 2},
		}},
	}.print(&buf)

	out := buf.String()
	assert.Contains(t, out, "4 correct, 0 wrong, 0 failed")
	assert.Contains(t, out, "ideal:     20ms")
	assert.Contains(t, out, "worker 1: executed=2")
}
