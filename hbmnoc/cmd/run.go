package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/mem/hbmctrl"
	"github.com/sarchlab/hbmnoc/noc/acceptance"
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/noc/traffic"
	"github.com/sarchlab/hbmnoc/sim"
	"github.com/sarchlab/hbmnoc/simulation"
)

type runStats struct {
	Pattern        string
	Cycles         uint64
	Generated      int
	Delivered      int
	HBMReads       int
	HBMWrites      int
	TileTxns       int
	FlitsRouted    uint64
	BytesSent      uint64
	BytesReceived  uint64
	ReadConflicts  uint64
	WriteConflicts uint64
}

type ctrlStats struct {
	Name          string
	Reads         uint64
	Writes        uint64
	Retries       uint64
	BytesRead     uint64
	BytesWritten  uint64
	FlitsReceived uint64
	FlitsSent     uint64
}

func makeCtrlStats(name string, st hbmctrl.Stats) ctrlStats {
	return ctrlStats{
		Name:          name,
		Reads:         st.Reads,
		Writes:        st.Writes,
		Retries:       st.Retries,
		BytesRead:     st.BytesRead,
		BytesWritten:  st.BytesWritten,
		FlitsReceived: st.FlitsReceived,
		FlitsSent:     st.FlitsSent,
	}
}

var (
	runConfigFlags configFlags
	runSimFlags    simFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run synthetic traffic over the mesh.",
	Long: "`run` lets every tile inject transactions of the selected " +
		"traffic pattern, checks that every transaction arrives intact " +
		"and reports the statistics.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := runConfigFlags.loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := runSimFlags.buildSimulation()
		if err != nil {
			return err
		}
		defer s.Terminate()

		return runTraffic(cfg, s, &runSimFlags, cmd.OutOrStdout())
	},
}

func init() {
	runConfigFlags.register(runCmd)
	runSimFlags.register(runCmd)
	rootCmd.AddCommand(runCmd)
}

func recordConfig(s *simulation.Simulation, cfg config.Config) {
	s.RecordExecInfo("Traffic", cfg.TrafficPattern)
	s.RecordExecInfo("Routing", cfg.RoutingAlgorithm)
	s.RecordExecInfo("Selection", cfg.SelectionStrategy)
	s.RecordExecInfo("Seed", strconv.FormatInt(cfg.Seed, 10))
	s.RecordExecInfo("Injection Rate",
		strconv.FormatFloat(cfg.InjectionRate, 'g', -1, 64))
}

func runTraffic(
	cfg config.Config,
	s *simulation.Simulation,
	flags *simFlags,
	out io.Writer,
) error {
	engine := s.GetEngine()
	m := mesh.MakeBuilder().
		WithEngine(engine).
		WithConfig(cfg).
		Build("Mesh")

	gen, err := traffic.NewGenerator(cfg)
	if err != nil {
		return err
	}

	test := acceptance.NewTest(m.Memory, cfg.Seed)
	for _, a := range acceptance.AttachAgents(m, test, cfg.InjectionRate, cfg.Seed) {
		s.RegisterComponent(a)
	}

	s.RegisterMesh(m)
	recordConfig(s, cfg)

	if err := flags.attachTracer(s); err != nil {
		return err
	}

	finishAnalysis, err := flags.attachAnalyzer(s, m)
	if err != nil {
		return err
	}

	timing := attachTiming(s, m)

	n := test.GenerateTxns(gen, cfg.NumTransactions)
	slog.Info("traffic generated",
		"pattern", gen.Pattern().Name(), "txns", n, "mesh", m.String())

	trackProgress(s, m, uint64(n), test.NumDelivered)

	m.Clock.Start()
	if err := engine.Run(); err != nil {
		return fmt.Errorf("simulation stopped at cycle %d: %w",
			m.Clock.Cycles(), err)
	}

	if err := finishAnalysis(); err != nil {
		return err
	}

	if err := mustDeliverAll(test); err != nil {
		return err
	}

	if err := test.VerifyMemory(); err != nil {
		return err
	}

	stats := collectRunStats(cfg, m, test)
	recordRunStats(s, m, stats)
	printRunStats(out, stats)
	timing.report(s, out, stats.Cycles)
	test.ReportBandwidthAchieved(engine.CurrentTime(), cfg.Freq)

	return nil
}

// trackProgress moves the monitor progress bar along with the deliveries.
func trackProgress(
	s *simulation.Simulation,
	m *mesh.Mesh,
	total uint64,
	finished func() int,
) {
	monitor := s.GetMonitor()
	if monitor == nil {
		return
	}

	bar := monitor.CreateProgressBar("Transactions", total)
	reported := 0

	m.Clock.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos != sim.HookPosClockTick {
			return
		}

		now := finished()
		if now > reported {
			bar.IncrementFinished(uint64(now - reported))
			reported = now
		}
	}))
}

func mustDeliverAll(test *acceptance.Test) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprint(r))
		}
	}()

	test.MustHaveReceivedAllTxns()

	return nil
}

func collectRunStats(
	cfg config.Config,
	m *mesh.Mesh,
	test *acceptance.Test,
) runStats {
	summary := test.Summary()
	hbmStats := m.Memory.Stats()

	return runStats{
		Pattern:        cfg.TrafficPattern,
		Cycles:         uint64(m.Clock.Cycles()),
		Generated:      summary.Generated,
		Delivered:      summary.Delivered,
		HBMReads:       summary.HBMReads,
		HBMWrites:      summary.HBMWrites,
		TileTxns:       summary.TileTxns,
		FlitsRouted:    m.TotalFlitsRouted(),
		BytesSent:      summary.BytesSent,
		BytesReceived:  summary.BytesReceived,
		ReadConflicts:  hbmStats.ReadConflicts,
		WriteConflicts: hbmStats.WriteConflicts,
	}
}

func recordRunStats(s *simulation.Simulation, m *mesh.Mesh, stats runStats) {
	rec := s.GetDataRecorder()

	rec.CreateTable("run_stats", runStats{})
	rec.InsertData("run_stats", stats)

	rec.CreateTable("hbmctrl_stats", ctrlStats{})
	for _, c := range m.Ctrls {
		rec.InsertData("hbmctrl_stats", makeCtrlStats(c.Name(), c.Stats()))
	}

	rec.Flush()
}

func printRunStats(out io.Writer, stats runStats) {
	fmt.Fprintf(out, "pattern:         %s\n", stats.Pattern)
	fmt.Fprintf(out, "cycles:          %d\n", stats.Cycles)
	fmt.Fprintf(out, "transactions:    %d generated, %d delivered\n",
		stats.Generated, stats.Delivered)
	fmt.Fprintf(out, "  hbm reads:     %d\n", stats.HBMReads)
	fmt.Fprintf(out, "  hbm writes:    %d\n", stats.HBMWrites)
	fmt.Fprintf(out, "  tile to tile:  %d\n", stats.TileTxns)
	fmt.Fprintf(out, "flits routed:    %d\n", stats.FlitsRouted)
	fmt.Fprintf(out, "bytes:           %d sent, %d received\n",
		stats.BytesSent, stats.BytesReceived)
	fmt.Fprintf(out, "hbm conflicts:   %d read, %d write\n",
		stats.ReadConflicts, stats.WriteConflicts)
}
