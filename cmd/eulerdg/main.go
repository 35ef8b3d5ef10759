package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mkron/eulerdg/internal/cflsearch"
	"github.com/mkron/eulerdg/internal/config"
	"github.com/mkron/eulerdg/internal/driver"
	"github.com/mkron/eulerdg/internal/par"
	"github.com/mkron/eulerdg/internal/plot"
	"github.com/mkron/eulerdg/internal/storage"
	"github.com/mkron/eulerdg/internal/viz"
)

const defaultParamFile = "default_parameters.prm"

var (
	dataDir string
	preset  string
	verbose bool
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "unexpected internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := &cobra.Command{
		Use:           "eulerdg",
		Short:         "adaptive linearized-Euler simulation driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".eulerdg", "data directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [paramfile]",
		Short: "run one simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "use a preset parameter set")

	cflCmd := &cobra.Command{
		Use:   "cfl [paramfile]",
		Short: "search the explicit stability limit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCFLSearch,
	}

	liveCmd := &cobra.Command{
		Use:   "live [paramfile]",
		Short: "run one simulation with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadParams(args)
			if err != nil {
				return err
			}
			return viz.RunLive(p)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the error history of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	plotPNGCmd := &cobra.Command{
		Use:   "plot-png [run_id] [file]",
		Short: "export the error history of a saved run as PNG",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  plotRunPNG,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, cflCmd, liveCmd, listCmd, plotCmd, plotPNGCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableCaller = true
	return cfg.Build()
}

// loadParams resolves the positional parameter file. An explicitly
// named file must exist; the implicit default falls back to built-in
// defaults when absent.
func loadParams(args []string) (*config.Parameters, error) {
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets())
		}
		return p, nil
	}
	path := defaultParamFile
	explicit := false
	if len(args) > 0 {
		path = args[0]
		explicit = true
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return config.Default(), nil
		}
		return nil, err
	}
	return config.Load(path)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	p, err := loadParams(args)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if p.CFLStabilityAnalysis {
		return cflSearch(p, log)
	}
	return singleRun(p, log)
}

func runCFLSearch(cmd *cobra.Command, args []string) error {
	p, err := loadParams(args)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	return cflSearch(p, log)
}

func singleRun(p *config.Parameters, log *zap.Logger) error {
	pr := driver.New(p, par.Serial(), log)
	rep, err := pr.Run()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(p, rep, pr.History())
	if err != nil {
		return err
	}

	fmt.Printf("Performed %d time steps on %d cells.\n", rep.Steps, rep.Cells)
	fmt.Printf("Average wallclock time per time step: %v, time per element: %v\n",
		rep.PerStep, rep.PerStepPerCell)
	fmt.Printf("Spent %v on output", rep.OutputTime)
	if rep.AdaptTime > 0 {
		fmt.Printf(", %v on adaptation,", rep.AdaptTime)
	}
	fmt.Printf(" and %v on computations.\n", rep.WallTime)
	fmt.Printf("Saved run %s\n\n", runID)

	// echo the effective parameters so the run can be reproduced
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func cflSearch(p *config.Parameters, log *zap.Logger) error {
	oracle := func(probe *config.Parameters) (bool, error) {
		// snapshots from probe runs would overwrite each other and are
		// of no interest
		q := *probe
		q.OutputDir = ""
		pr := driver.New(&q, par.Serial(), log)
		rep, err := pr.Run()
		if err != nil {
			return false, err
		}
		return rep.Stable, nil
	}

	res, err := cflsearch.Run(p, oracle, log)
	if err != nil {
		return err
	}

	fmt.Println("Final results for the CFL stability analysis:")
	if res.HasInstable() {
		fmt.Printf("The Courant number %g is instable\n", res.ScaledInstable)
	} else {
		fmt.Println("No instable Courant number found")
	}
	if res.HasStable() {
		fmt.Printf("The Courant number %g is stable\n", res.ScaledStable)
	} else {
		fmt.Println("No stable Courant number found")
	}
	if res.HasStable() && res.HasInstable() {
		fmt.Printf("The limit might be in the middle: %g\n", res.ScaledMidpoint)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIM\tDEG\tSCHEME\tCASE\tCFL\tSTEPS\tCELLS\tSTABLE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%.3f\t%d\t%d\t%v\n",
			run.ID, run.Dimension, run.Degree, run.Scheme, run.InitialCase,
			run.CFL, run.Steps, run.Cells, run.Stable)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	history, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scheme: %s, degree %d, case %d\n", meta.Scheme, meta.Degree, meta.InitialCase)
	fmt.Printf("samples: %d\n\n", len(history))

	curves := []struct {
		caption string
		pick    func(driver.Sample) float64
	}{
		{"density error", func(s driver.Sample) float64 { return s.ErrorDensity }},
		{"momentum error", func(s driver.Sample) float64 { return s.ErrorMomentum }},
		{"energy error", func(s driver.Sample) float64 { return s.ErrorEnergy }},
		{"density magnitude", func(s driver.Sample) float64 { return s.DensityMagnitude }},
	}
	for _, c := range curves {
		data := make([]float64, len(history))
		for i, s := range history {
			data[i] = c.pick(s)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(c.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func plotRunPNG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	history, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}

	out := args[0] + ".png"
	if len(args) > 1 {
		out = args[1]
	}
	if err := plot.WritePNG(history, meta.ID, out); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}
