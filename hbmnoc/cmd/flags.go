package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/hbmnoc/analysis"
	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/sim"
	"github.com/sarchlab/hbmnoc/simulation"
)

// configFlags mirror the fields of config.Config that are worth setting from
// the command line. Only the flags that the user set override the
// configuration loaded from the environment.
type configFlags struct {
	meshWidth   int
	meshHeight  int
	flitSize    int
	bufferDepth int
	numVCs      int
	routing     string
	selection   string
	traffic     string
	rate        float64
	txns        int
	seed        int64
	cycleLimit  uint64
	hotspots    []int
}

func (f *configFlags) register(cmd *cobra.Command) {
	d := config.Default()
	fs := cmd.Flags()

	fs.IntVar(&f.meshWidth, "mesh-width", d.MeshWidth, "Number of columns.")
	fs.IntVar(&f.meshHeight, "mesh-height", d.MeshHeight, "Number of rows.")
	fs.IntVar(&f.flitSize, "flit-size", d.FlitSize, "Flit payload in bytes.")
	fs.IntVar(&f.bufferDepth, "buffer-depth", d.BufferDepth,
		"Capacity of every router ingress buffer.")
	fs.IntVar(&f.numVCs, "vcs", d.NumVCs, "Number of virtual channels.")
	fs.StringVar(&f.routing, "routing", d.RoutingAlgorithm,
		"Routing algorithm: xy, yx or west_first.")
	fs.StringVar(&f.selection, "selection", d.SelectionStrategy,
		"Output selection: buffer_level, random or first.")
	fs.StringVar(&f.traffic, "traffic", d.TrafficPattern,
		"Synthetic traffic pattern.")
	fs.Float64Var(&f.rate, "rate", d.InjectionRate,
		"Injection rate in transactions per tile per cycle.")
	fs.IntVar(&f.txns, "txns", d.NumTransactions,
		"Number of transactions to generate.")
	fs.Int64Var(&f.seed, "seed", d.Seed, "Random seed.")
	fs.Uint64Var(&f.cycleLimit, "cycle-limit", d.CycleLimit,
		"Stop with an error after this many cycles. 0 means no limit.")
	fs.IntSliceVar(&f.hotspots, "hotspots", nil,
		"Hotspot nodes of the hotspot pattern.")
}

// loadConfig builds the configuration from the defaults, the dotenv file and
// the environment, and then the flags the user set.
func (f *configFlags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadEnv(config.Default(), envFile)
	if err != nil {
		return cfg, err
	}

	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("mesh-width", func() { cfg.MeshWidth = f.meshWidth })
	set("mesh-height", func() { cfg.MeshHeight = f.meshHeight })
	set("flit-size", func() { cfg.FlitSize = f.flitSize })
	set("buffer-depth", func() { cfg.BufferDepth = f.bufferDepth })
	set("vcs", func() { cfg.NumVCs = f.numVCs })
	set("routing", func() { cfg.RoutingAlgorithm = f.routing })
	set("selection", func() { cfg.SelectionStrategy = f.selection })
	set("traffic", func() { cfg.TrafficPattern = f.traffic })
	set("rate", func() { cfg.InjectionRate = f.rate })
	set("txns", func() { cfg.NumTransactions = f.txns })
	set("seed", func() { cfg.Seed = f.seed })
	set("cycle-limit", func() { cfg.CycleLimit = f.cycleLimit })
	set("hotspots", func() { cfg.Hotspots = append([]int(nil), f.hotspots...) })

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration: %w", err)
	}

	return cfg, nil
}

// simFlags control the simulation services rather than the model.
type simFlags struct {
	monitor     bool
	monitorPort int
	openBrowser bool
	output      string
	trace       []string

	analyzePeriod uint64
	perfCSV       string
}

func (f *simFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()

	fs.BoolVar(&f.monitor, "monitor", false,
		"Serve the monitoring page while the simulation runs.")
	fs.IntVar(&f.monitorPort, "monitor-port", 0,
		"Port of the monitoring server. 0 picks a free port.")
	fs.BoolVar(&f.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser.")
	fs.StringVar(&f.output, "output", "",
		"Name of the SQLite file that stores the results, without extension.")
	fs.StringSliceVar(&f.trace, "trace", nil,
		"Components whose tasks are stored in the trace table.")
	fs.Uint64Var(&f.analyzePeriod, "analyze-period", 0,
		"Record buffer levels and link traffic every this many cycles.")
	fs.StringVar(&f.perfCSV, "perf-csv", "",
		"Write the analysis into this CSV file instead of the perf table.")
}

func (f *simFlags) buildSimulation() (*simulation.Simulation, error) {
	b := simulation.MakeBuilder().WithOutputFileName(f.output)

	if !f.monitor {
		if f.monitorPort != 0 || f.openBrowser {
			return nil, errors.New(
				"--monitor-port and --open-browser need --monitor")
		}

		return b.WithoutMonitoring().Build(), nil
	}

	return b.
		WithMonitorPort(f.monitorPort).
		WithBrowser(f.openBrowser).
		Build(), nil
}

func (f *simFlags) attachTracer(s *simulation.Simulation) error {
	for _, name := range f.trace {
		if err := s.TraceComponent(name); err != nil {
			return err
		}
	}

	return nil
}

// attachAnalyzer hooks a perf analyzer to the buffers and wires of the mesh.
// The returned function writes the last period once the run is over.
func (f *simFlags) attachAnalyzer(
	s *simulation.Simulation,
	m *mesh.Mesh,
) (finish func() error, err error) {
	if f.analyzePeriod == 0 {
		if f.perfCSV != "" {
			return nil, errors.New("--perf-csv needs --analyze-period")
		}

		return func() error { return nil }, nil
	}

	var backend analysis.PerfAnalyzerBackend = analysis.NewRecorderBackend(
		s.GetDataRecorder())
	closeBackend := func() error { return nil }

	if f.perfCSV != "" {
		csvBackend, err := analysis.NewCSVPerfAnalyzerBackend(f.perfCSV)
		if err != nil {
			return nil, err
		}

		backend = csvBackend
		closeBackend = csvBackend.Close
	}

	a := analysis.MakePerfAnalyzerBuilder().
		WithPeriod(sim.VTimeInCycle(f.analyzePeriod)).
		WithTimeTeller(s.GetEngine()).
		WithBackend(backend).
		Build()
	a.RegisterMesh(m)

	return func() error {
		a.Summarize()
		return closeBackend()
	}, nil
}
