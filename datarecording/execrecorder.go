package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTableName = "exec_info"

type execInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how a simulation was run: the command, the
// configuration and the wall-clock start and end times.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

// NewExecRecorder creates the exec_info table in the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(execTableName, execInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Start logs the start of the current execution.
func (e *ExecRecorder) Start() {
	e.Record("Start Time", timestamp(time.Now()))
	e.Record("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.Record("Working Directory", cwd)
}

// Record adds a property of the execution.
func (e *ExecRecorder) Record(property, value string) {
	e.entries = append(e.entries, execInfo{Property: property, Value: value})
}

// End writes all the properties along with the exit time.
func (e *ExecRecorder) End() {
	e.Record("End Time", timestamp(time.Now()))

	for _, entry := range e.entries {
		e.recorder.InsertData(execTableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}

func timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000000000")
}
