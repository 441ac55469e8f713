package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sarchlab/hbmnoc/config"
	"github.com/sarchlab/hbmnoc/noc/acceptance"
	"github.com/sarchlab/hbmnoc/noc/networking/mesh"
	"github.com/sarchlab/hbmnoc/noc/niu"
	"github.com/sarchlab/hbmnoc/simulation"
)

type legacyStats struct {
	Cycles      uint64
	Requests    int
	Completed   int
	Reads       uint64
	Writes      uint64
	Served      uint64
	Retries     uint64
	Declined    uint64
	Invalidated uint64
	FlitsSent   uint64
}

var (
	legacyConfigFlags configFlags
	legacySimFlags    simFlags
)

var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Run split transactions over legacy NIUs.",
	Long: "`legacy` builds the mesh with legacy split-transaction NIUs. " +
		"Even tiles issue single-word reads and writes to odd tiles, which " +
		"serve them from the shared HBM.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := legacyConfigFlags.loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := legacySimFlags.buildSimulation()
		if err != nil {
			return err
		}
		defer s.Terminate()

		return runLegacy(cfg, s, &legacySimFlags, cmd.OutOrStdout())
	},
}

func init() {
	legacyConfigFlags.register(legacyCmd)
	legacySimFlags.register(legacyCmd)
	rootCmd.AddCommand(legacyCmd)
}

func runLegacy(
	cfg config.Config,
	s *simulation.Simulation,
	flags *simFlags,
	out io.Writer,
) error {
	engine := s.GetEngine()
	m := mesh.MakeBuilder().
		WithEngine(engine).
		WithConfig(cfg).
		WithLegacyNIUs().
		Build("Mesh")

	test := acceptance.NewLegacyTest(m, cfg.Seed)
	for _, a := range test.Agents() {
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

	n := test.GenerateRequests(cfg.NumTransactions)
	if n == 0 {
		return fmt.Errorf("%w: legacy traffic needs at least two tiles",
			config.ErrInvalidConfig)
	}

	slog.Info("legacy requests generated", "requests", n, "mesh", m.String())
	trackProgress(s, m, uint64(n), test.Completed)

	m.Clock.Start()
	if err := engine.Run(); err != nil {
		return fmt.Errorf("simulation stopped at cycle %d: %w",
			m.Clock.Cycles(), err)
	}

	if err := finishAnalysis(); err != nil {
		return err
	}

	if err := test.Verify(); err != nil {
		return err
	}

	stats := collectLegacyStats(m, n, test.Completed())

	rec := s.GetDataRecorder()
	rec.CreateTable("legacy_stats", legacyStats{})
	rec.InsertData("legacy_stats", stats)
	rec.Flush()

	printLegacyStats(out, stats)

	return nil
}

func collectLegacyStats(m *mesh.Mesh, requests, completed int) legacyStats {
	stats := legacyStats{
		Cycles:    uint64(m.Clock.Cycles()),
		Requests:  requests,
		Completed: completed,
	}

	for _, n := range m.LegacyNIUs {
		addLegacyStats(&stats, n.Stats())
	}

	return stats
}

func addLegacyStats(dst *legacyStats, st niu.LegacyStats) {
	dst.Reads += st.Reads
	dst.Writes += st.Writes
	dst.Served += st.Served
	dst.Retries += st.Retries
	dst.Declined += st.Declined
	dst.Invalidated += st.Invalidated
	dst.FlitsSent += st.FlitsSent
}

func printLegacyStats(out io.Writer, stats legacyStats) {
	fmt.Fprintf(out, "cycles:        %d\n", stats.Cycles)
	fmt.Fprintf(out, "requests:      %d issued, %d completed\n",
		stats.Requests, stats.Completed)
	fmt.Fprintf(out, "  reads:       %d\n", stats.Reads)
	fmt.Fprintf(out, "  writes:      %d\n", stats.Writes)
	fmt.Fprintf(out, "served:        %d\n", stats.Served)
	fmt.Fprintf(out, "retries:       %d\n", stats.Retries)
	fmt.Fprintf(out, "declined:      %d\n", stats.Declined)
	fmt.Fprintf(out, "invalidated:   %d\n", stats.Invalidated)
	fmt.Fprintf(out, "flits sent:    %d\n", stats.FlitsSent)
}
