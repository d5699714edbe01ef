package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"rcore/interpreter-go/pkg/interpreter"
	"rcore/interpreter-go/pkg/runtime"
)

// Task is one program submitted for batch evaluation.
type Task struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
}

// TaskResult is the serializable outcome of a Task. Value is the deparsed
// value of the last top-level expression; Error is the full error report.
type TaskResult struct {
	ID       string   `yaml:"id"`
	Output   string   `yaml:"output,omitempty"`
	Value    string   `yaml:"value,omitempty"`
	Error    string   `yaml:"error,omitempty"`
	Warnings []string `yaml:"warnings,omitempty"`
}

type taskFile struct {
	Tasks []Task `yaml:"tasks"`
}

type resultFile struct {
	Results []TaskResult `yaml:"results"`
}

// ReadTasks decodes a tasks: document.
func ReadTasks(r io.Reader) ([]Task, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var file taskFile
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("batch: parse tasks: %w", err)
	}
	seen := make(map[string]bool, len(file.Tasks))
	for k, t := range file.Tasks {
		if t.ID == "" {
			file.Tasks[k].ID = fmt.Sprintf("task-%d", k+1)
		}
		if seen[file.Tasks[k].ID] {
			return nil, fmt.Errorf("batch: duplicate task id %q", file.Tasks[k].ID)
		}
		seen[file.Tasks[k].ID] = true
	}
	return file.Tasks, nil
}

// WriteResults encodes results as a results: document.
func WriteResults(w io.Writer, results []TaskResult) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(resultFile{Results: results}); err != nil {
		return fmt.Errorf("batch: encode results: %w", err)
	}
	return encoder.Close()
}

// RunBatch evaluates every task in its own interpreter on a pool of
// workers goroutines. Results come back in task order. A cancelled ctx
// marks the tasks that did not finish with the context error.
func RunBatch(ctx context.Context, cfg *Config, logger zerolog.Logger, tasks []Task, workers int) []TaskResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]TaskResult, len(tasks))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = runTask(ctx, cfg, logger, tasks[idx])
			}
		}()
	}
	for idx := range tasks {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return results
}

func runTask(ctx context.Context, cfg *Config, logger zerolog.Logger, task Task) TaskResult {
	res := TaskResult{ID: task.ID}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	logger = logger.With().Str("task", task.ID).Logger()
	out, err := NewSession(cfg, logger).Eval(ctx, task.Source)
	res.Output = out.Output
	res.Warnings = out.Warnings
	switch {
	case err != nil:
		res.Error = err.Error()
	case out.Err != nil:
		res.Error = interpreter.DescribeError(out.Err)
	case out.Value != nil:
		res.Value = runtime.DeparseValue(out.Value)
	}
	logger.Debug().Bool("failed", res.Error != "").Msg("task finished")
	return res
}
