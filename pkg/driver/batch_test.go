package driver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const taskDocument = `tasks:
  - id: sum
    source: "sum(1:10)"
  - id: fails
    source: |
      f <- function() stop("boom")
      f()
  - source: 'x <- c(a = 1); warning("w"); x'
`

func TestReadTasksAssignsMissingIDs(t *testing.T) {
	tasks, err := ReadTasks(strings.NewReader(taskDocument))
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Equal(t, "task-3", tasks[2].ID)

	_, err = ReadTasks(strings.NewReader("tasks:\n  - id: a\n    source: '1'\n  - id: a\n    source: '2'\n"))
	require.ErrorContains(t, err, "duplicate task id")
}

func TestRunBatchKeepsTaskOrder(t *testing.T) {
	tasks, err := ReadTasks(strings.NewReader(taskDocument))
	require.NoError(t, err)

	results := RunBatch(context.Background(), DefaultConfig(), zerolog.Nop(), tasks, 4)
	require.Len(t, results, 3)

	require.Equal(t, "sum", results[0].ID)
	require.Equal(t, "[1] 55\n", results[0].Output)
	require.Equal(t, "55L", results[0].Value)
	require.Empty(t, results[0].Error)

	require.Equal(t, "Error in f() : boom", results[1].Error)
	require.Empty(t, results[1].Value)

	require.Equal(t, "c(a = 1)", results[2].Value)
	require.Equal(t, []string{"w"}, results[2].Warnings)
}

func TestRunBatchIsolatesTasks(t *testing.T) {
	tasks := []Task{
		{ID: "define", Source: "shared <- 1"},
		{ID: "use", Source: "exists(\"shared\")"},
	}
	results := RunBatch(context.Background(), DefaultConfig(), zerolog.Nop(), tasks, 1)
	require.Equal(t, "[1] FALSE\n", results[1].Output)
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := RunBatch(ctx, DefaultConfig(), zerolog.Nop(), []Task{{ID: "loop", Source: "while (TRUE) {}"}}, 2)
	require.Equal(t, context.Canceled.Error(), results[0].Error)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, []TaskResult{{ID: "a", Value: "1", Warnings: []string{"w"}}}))
	require.Equal(t, "results:\n  - id: a\n    value: \"1\"\n    warnings:\n      - w\n", buf.String())
}

func TestSessionKeepsStateBetweenCalls(t *testing.T) {
	s := NewSession(nil, zerolog.Nop())
	out, err := s.Eval(context.Background(), "x <- 2")
	require.NoError(t, err)
	require.False(t, out.Visible)
	require.Empty(t, out.Output)

	out, err = s.Eval(context.Background(), "x * 21")
	require.NoError(t, err)
	require.Equal(t, "[1] 42\n", out.Output)

	out, err = s.Eval(context.Background(), "stop(\"nope\")")
	require.NoError(t, err)
	require.Equal(t, "nope", ErrorMessage(out.Err))
}
