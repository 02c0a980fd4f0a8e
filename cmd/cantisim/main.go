package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/cantisim/internal/analysis"
	"github.com/san-kum/cantisim/internal/cantilever"
	"github.com/san-kum/cantisim/internal/config"
	"github.com/san-kum/cantisim/internal/export"
	"github.com/san-kum/cantisim/internal/integrators"
	"github.com/san-kum/cantisim/internal/pixel"
	"github.com/san-kum/cantisim/internal/storage"
	"github.com/san-kum/cantisim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	model        string
	integrator   string
	triggerPhase float64
	tolerance    float64
	downsample   float64

	driveFreq    float64
	resFreq      float64
	springK      float64
	qFactor      float64
	totalTime    float64
	trigger      float64
	samplingRate float64

	nPixels int
	roi     float64
	outPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cantisim",
		Short: "AFM cantilever response simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cantisim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a deflection waveform",
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().Float64Var(&downsample, "downsample", 0, "target sampling rate in Hz, 0 keeps native")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved waveform",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "power spectrum of a saved waveform",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "simulate and extract tfp and frequency shift",
		RunE:  analyzeSimulation,
	}
	addConfigFlags(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&roi, "roi", 0.0003, "region of interest after trigger (s)")

	lineCmd := &cobra.Command{
		Use:   "line",
		Short: "simulate a scan line of pixels",
		RunE:  runLine,
	}
	addConfigFlags(lineCmd)
	lineCmd.Flags().IntVar(&nPixels, "pixels", 8, "pixels per line")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render waveform and spectrum to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVar(&outPath, "out", ".", "output directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "live terminal view of the oscillator",
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, spectrumCmd, analyzeCmd, lineCmd,
		exportCSVCmd, exportJSONCmd, exportPNGCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset configuration")
	cmd.Flags().StringVar(&model, "model", "", "force model: sine, tipsample, electric")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator: euler, rk4, rk45")
	cmd.Flags().Float64Var(&triggerPhase, "phase", config.DefaultTriggerPhase, "trigger phase (degrees)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "adaptive error tolerance")
	cmd.Flags().Float64Var(&driveFreq, "drive-freq", 0, "drive frequency (Hz)")
	cmd.Flags().Float64Var(&resFreq, "res-freq", 0, "resonance frequency (Hz)")
	cmd.Flags().Float64Var(&springK, "k", 0, "spring constant (N/m)")
	cmd.Flags().Float64Var(&qFactor, "q", 0, "quality factor")
	cmd.Flags().Float64Var(&totalTime, "time", 0, "acquisition time (s)")
	cmd.Flags().Float64Var(&trigger, "trigger", 0, "trigger time (s)")
	cmd.Flags().Float64Var(&samplingRate, "rate", 0, "sampling rate (Hz)")
}

// loadConfig layers preset, config file and explicit flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("model") {
		cfg.Model = model
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("phase") {
		cfg.TriggerPhase = triggerPhase
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if cmd.Flags().Changed("drive-freq") {
		cfg.Cantilever.DriveFreq = driveFreq
	}
	if cmd.Flags().Changed("res-freq") {
		cfg.Cantilever.ResFreq = resFreq
	}
	if cmd.Flags().Changed("k") {
		cfg.Cantilever.K = springK
	}
	if cmd.Flags().Changed("q") {
		cfg.Cantilever.QFactor = qFactor
	}
	if cmd.Flags().Changed("time") {
		cfg.Simulation.TotalTime = totalTime
	}
	if cmd.Flags().Changed("trigger") {
		cfg.Simulation.Trigger = trigger
	}
	if cmd.Flags().Changed("rate") {
		cfg.Simulation.SamplingRate = samplingRate
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sim, err := cfg.Build()
	if err != nil {
		return err
	}

	d := sim.Derived()
	fmt.Printf("running %s model...\n", cfg.Model)
	fmt.Printf("amplitude: %.3e m  phase lag: %.4f rad\n", d.Amp, d.Delta)
	if sim.ResonanceMismatch() {
		fmt.Println("warning: drive is off resonance, transient needs time to settle")
	}

	start := time.Now()
	result, err := sim.Simulate(cfg.TriggerPhase, nil)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if !result.Diagnostics.Converged {
		fmt.Printf("solver did not converge: %s\n", result.Diagnostics.Message)
	}

	if downsample > 0 {
		if err := sim.Downsample(downsample); err != nil {
			return err
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	runID, err := st.Save(storage.RunMetadata{
		Model:        cfg.Model,
		Integrator:   cfg.Integrator,
		TriggerPhase: cfg.TriggerPhase,
		SamplingRate: sim.Rate(),
		TotalTime:    cfg.Simulation.TotalTime,
		Trigger:      cfg.Simulation.Trigger,
		Downsampled:  sim.Downsampled(),
		Diagnostics:  result.Diagnostics,
	}, sim.Waveform())
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("samples: %d  steps: %d  rejected: %d\n",
		len(sim.Waveform()), result.Diagnostics.Steps, result.Diagnostics.Rejected)
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tPHASE\tRATE\tSAMPLES\tCONVERGED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f°\t%.2e\t%d\t%v\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TriggerPhase,
			run.SamplingRate,
			run.Samples,
			run.Diagnostics.Converged,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	_, z, err := st.LoadWaveform(args[0])
	if err != nil {
		return err
	}
	if len(z) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\nmodel: %s\nsamples: %d\n\n", meta.ID, meta.Model, len(z))

	// decimate to terminal width, nanometers
	width := 100
	step := len(z) / width
	if step < 1 {
		step = 1
	}
	data := make([]float64, 0, width)
	for i := 0; i < len(z); i += step {
		data = append(data, z[i]*1e9)
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(14),
		asciigraph.Width(width),
		asciigraph.Caption("deflection (nm)"),
	)
	fmt.Println(graph)
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	_, z, err := st.LoadWaveform(args[0])
	if err != nil {
		return err
	}
	if len(z) == 0 {
		return fmt.Errorf("no data")
	}

	// window against leakage before transforming
	w := analysis.Blackman(len(z))
	windowed := make([]float64, len(z))
	for i := range z {
		windowed[i] = z[i] * w[i]
	}

	power := analysis.PowerSpectrum(windowed)

	// plot up to twice the drive band, the rest is numerically empty
	cut := len(power) / 8
	if cut < 2 {
		cut = len(power)
	}
	graph := asciigraph.Plot(power[:cut],
		asciigraph.Height(14),
		asciigraph.Width(100),
		asciigraph.Caption("power spectrum"),
	)
	fmt.Println(graph)
	fmt.Printf("dominant frequency: %.1f Hz\n", analysis.DominantFrequency(z, meta.SamplingRate))
	return nil
}

func analyzeSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Model == "sine" || cfg.Model == "" {
		// the free oscillation has no shift to extract
		cfg.Model = "tipsample"
	}

	sim, err := cfg.Build()
	if err != nil {
		return err
	}
	if _, err := sim.Simulate(cfg.TriggerPhase, nil); err != nil {
		return err
	}

	overrides := map[string]any{}
	if cmd.Flags().Changed("roi") {
		overrides["roi"] = roi
	}

	pix, err := sim.Analyze(true, overrides)
	if err != nil {
		return err
	}
	fmt.Printf("\ntfp: %.3e s\nshift: %+.1f Hz\n", pix.TFP(), pix.Shift())
	return nil
}

func runLine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("simulating %d pixels...\n", nPixels)
	start := time.Now()

	// surface potential ramp along the line
	signal, err := cantilever.SimulateLine(cfg.Cantilever, cfg.Force, cfg.Simulation, nPixels, cfg.TriggerPhase,
		func(i int, fc cantilever.ForceConfig) cantilever.ForceConfig {
			fc.ESForce *= 0.5 + float64(i)/float64(nPixels)
			return fc
		})
	if err != nil {
		return err
	}

	line, err := pixel.NewLine(signal, nPixels, map[string]any{
		"sampling_rate": cfg.Simulation.SamplingRate,
		"trigger":       cfg.Simulation.Trigger,
	}, nil)
	if err != nil {
		return err
	}

	tfp, shift, err := line.GetTFP()
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PIXEL\tTFP (µs)\tSHIFT (Hz)")
	for i := range tfp {
		fmt.Fprintf(w, "%d\t%.2f\t%+.1f\n", i, tfp[i]*1e6, shift[i])
	}
	return w.Flush()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	times, z, err := st.LoadWaveform(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	if err := w.Write([]string{"time", "z"}); err != nil {
		return err
	}
	for i := range z {
		row := []string{
			strconv.FormatFloat(times[i], 'e', 9, 64),
			strconv.FormatFloat(z[i], 'e', 9, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, z, err := st.LoadWaveform(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSONStdout(meta, times, z)
}

func exportPNG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, z, err := st.LoadWaveform(args[0])
	if err != nil {
		return err
	}
	if len(z) == 0 {
		return fmt.Errorf("no data")
	}

	wavePath := fmt.Sprintf("%s/%s_waveform.png", outPath, meta.ID)
	if err := export.WaveformPNG(wavePath, times, z, meta.Model); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", wavePath)

	freqs, power := analysis.Spectrum(z, meta.SamplingRate)
	specPath := fmt.Sprintf("%s/%s_spectrum.png", outPath, meta.ID)
	if err := export.SpectrumPNG(specPath, freqs, power, meta.Model); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", specPath)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sim, err := cfg.Build()
	if err != nil {
		return err
	}

	cond := sim.SetConditions(cfg.TriggerPhase)
	m := viz.NewModel(
		sim.System(),
		integrators.NewRK4(),
		cond.Z0,
		1/cfg.Simulation.SamplingRate,
		cond.T0,
		cfg.Model+" cantilever",
	)
	return viz.Run(m)
}
