package daisen

import (
	"context"
	"sort"
	"strings"

	"github.com/sarchlab/hbmnoc/datarecording"
)

const traceTable = "trace"

// Task is a row of the trace table.
type Task struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Kind      string `json:"kind"`
	What      string `json:"what"`
	Location  string `json:"where"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
}

// TaskQuery is used to define the tasks to be queried. Not all the field has
// to be set. If the fields are empty, the criteria is ignored.
type TaskQuery struct {
	// Use ID to select a single task by its ID.
	ID string

	// Use ParentID to select all the tasks that are children of a task.
	ParentID string

	// Use Kind to select all the tasks that are of a kind.
	Kind string

	// Use Where to select all the tasks that are executed at a location.
	Where string

	// Enable time range selection.
	EnableTimeRange bool

	// Use StartTime to select tasks that overlaps with the given task range.
	StartTime, EndTime uint64
}

func (q TaskQuery) params() datarecording.QueryParams {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg ...any) {
		conds = append(conds, cond)
		args = append(args, arg...)
	}

	if q.ID != "" {
		add("ID = ?", q.ID)
	}

	if q.ParentID != "" {
		add("ParentID = ?", q.ParentID)
	}

	if q.Kind != "" {
		add("Kind = ?", q.Kind)
	}

	if q.Where != "" {
		add("Location = ?", q.Where)
	}

	if q.EnableTimeRange {
		add("EndTime > ? AND StartTime < ?", q.StartTime, q.EndTime)
	}

	return datarecording.QueryParams{
		Where:   strings.Join(conds, " AND "),
		Args:    args,
		OrderBy: "StartTime",
	}
}

type traceReader struct {
	reader datarecording.DataReader
}

func newTraceReader(reader datarecording.DataReader) *traceReader {
	reader.MapTable(traceTable, Task{})

	return &traceReader{reader: reader}
}

// ListTasks returns the tasks that match the query, by start time.
func (r *traceReader) ListTasks(
	ctx context.Context,
	query TaskQuery,
) ([]Task, error) {
	results, _, err := r.reader.Query(ctx, traceTable, query.params())
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(results))
	for _, res := range results {
		tasks = append(tasks, *res.(*Task))
	}

	return tasks, nil
}

// ListComponents returns the sorted locations that appear in the trace.
func (r *traceReader) ListComponents(ctx context.Context) ([]string, error) {
	tasks, err := r.ListTasks(ctx, TaskQuery{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	names := []string{}

	for _, t := range tasks {
		if !seen[t.Location] {
			seen[t.Location] = true
			names = append(names, t.Location)
		}
	}

	sort.Strings(names)

	return names, nil
}
