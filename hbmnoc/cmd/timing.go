package cmd

import (
	"fmt"
	"io"

	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/simulation"
	"github.com/sarchlab/hbmnoc/tracing"
)

type ctrlTiming struct {
	Name        string
	BusyCycles  uint64
	TxnCycles   uint64
	Utilization float64
}

// runTiming follows the NIU and controller tasks to report latencies and
// controller occupancy at the end of a run.
type runTiming struct {
	latency *tracing.AverageTimeTracer
	steps   *tracing.StepCountTracer
	busy    []*tracing.BusyTimeTracer
	total   []*tracing.TotalTimeTracer
	names   []string
}

func attachTiming(s *simulation.Simulation, m *mesh.Mesh) *runTiming {
	engine := s.GetEngine()
	t := &runTiming{
		latency: tracing.NewAverageTimeTracer(engine,
			tracing.KindFilter("txn_out")),
		steps: tracing.NewStepCountTracer(tracing.KindFilter("hbm_txn")),
	}

	for _, n := range m.NIUs {
		tracing.CollectTrace(n, t.latency)
	}

	for _, c := range m.Ctrls {
		busy := tracing.NewBusyTimeTracer(engine, tracing.KindFilter("hbm_txn"))
		total := tracing.NewTotalTimeTracer(engine,
			tracing.KindFilter("hbm_txn"))

		tracing.CollectTrace(c, busy)
		tracing.CollectTrace(c, total)
		tracing.CollectTrace(c, t.steps)

		t.busy = append(t.busy, busy)
		t.total = append(t.total, total)
		t.names = append(t.names, c.Name())
	}

	return t
}

func (t *runTiming) ctrls(cycles uint64) []ctrlTiming {
	rows := make([]ctrlTiming, 0, len(t.names))

	for i, name := range t.names {
		t.busy[i].TerminateAllTasks()

		row := ctrlTiming{
			Name:       name,
			BusyCycles: uint64(t.busy[i].BusyTime()),
			TxnCycles:  uint64(t.total[i].TotalTime()),
		}

		if cycles > 0 {
			row.Utilization = float64(row.BusyCycles) / float64(cycles)
		}

		rows = append(rows, row)
	}

	return rows
}

func (t *runTiming) report(s *simulation.Simulation, out io.Writer, cycles uint64) {
	rows := t.ctrls(cycles)

	rec := s.GetDataRecorder()
	rec.CreateTable("hbmctrl_timing", ctrlTiming{})

	for _, row := range rows {
		rec.InsertData("hbmctrl_timing", row)
	}

	rec.Flush()

	fmt.Fprintf(out, "txn send time:   %.2f avg, %d max cycles over %d txns\n",
		t.latency.AverageTime(), t.latency.MaxTime(), t.latency.TotalCount())
	fmt.Fprintf(out, "hbm retries:     %d\n", t.steps.GetStepCount("retry"))

	for _, row := range rows {
		fmt.Fprintf(out, "  %s busy %d cycles (%.1f%%)\n",
			row.Name, row.BusyCycles, 100*row.Utilization)
	}
}
