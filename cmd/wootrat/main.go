// Command wootrat turns the analog travel of Wooting keyboard keys into
// mouse movement and scrolling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"wootrat/internal/analog"
	"wootrat/internal/autostart"
	"wootrat/internal/config"
	"wootrat/internal/curve"
	"wootrat/internal/input"
	"wootrat/internal/motion"
	"wootrat/internal/tray"
	"wootrat/internal/ui"
)

var (
	configPath  = flag.String("config", "", "Path to the settings file (.json or .yaml)")
	openUI      = flag.Bool("ui", false, "Open the settings page on start")
	noTray      = flag.Bool("no-tray", false, "Run without a tray icon until interrupted")
	preview     = flag.Bool("preview", false, "Print the response curve for the current settings and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
	backendFlag = flag.String("backend", "", "Analog backend: auto, sdk or hid (overrides settings)")
	sdkPath     = flag.String("sdk-path", "", "Path to the Wooting analog SDK library")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn or error")
	logFormat   = flag.String("log-format", "console", "Log format: console or json")
	metricsAddr = flag.String("metrics-addr", "", "Also serve /metrics on this address")
)

var version = "0.1.0"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("WootRat %s\n", version)
		return
	}

	log, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(&log); err != nil {
		log.Error().Err(err).Msg("WootRat stopped")
		os.Exit(exitCode(err))
	}
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid -log-level %q", level)
	}
	switch format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid -log-format %q (want console or json)", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func run(log *zerolog.Logger) error {
	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfgLog := log.With().Str("subsystem", "config").Logger()
	mgr, err := config.NewManager(path, &cfgLog)
	if err != nil {
		return err
	}
	if err := mgr.Load(); err != nil {
		return err
	}
	settings := mgr.Get()
	log.Info().Str("path", mgr.Path()).Msg("settings loaded")

	if *preview {
		return printPreview(os.Stdout, settings)
	}

	// Fail early, naming the offending field.
	if _, _, _, err := settings.Build(); err != nil {
		return err
	}
	if _, err := settings.Interval(); err != nil {
		return err
	}

	backend := settings.AnalogBackend
	if *backendFlag != "" {
		backend = *backendFlag
	}
	kind, err := analog.ParseKind(backend)
	if err != nil {
		return &motion.ConfigError{Field: "analog_backend", Value: backend, Reason: err.Error()}
	}
	srcLog := log.With().Str("subsystem", "analog").Logger()
	src, err := analog.Open(kind, analog.Options{SDKPath: *sdkPath, Logger: &srcLog})
	if err != nil {
		return err
	}
	defer src.Close()
	devices, err := src.Initialize()
	if err != nil {
		return err
	}
	log.Info().Str("backend", src.Name()).Int("devices", devices).Msg("analog source ready")

	inLog := log.With().Str("subsystem", "input").Logger()
	pointer, err := input.New(&inLog)
	if err != nil {
		return err
	}
	defer pointer.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := motion.NewMetrics(reg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loopLog := log.With().Str("subsystem", "motion").Logger()
	a := &app{
		settings:  mgr,
		src:       src,
		sink:      pointer,
		sup:       motion.NewSupervisor(ctx, &loopLog, metrics),
		metrics:   metrics,
		log:       &loopLog,
		devices:   devices,
		autostart: autostart.Sync,
	}

	uiLog := log.With().Str("subsystem", "ui").Logger()
	server := ui.NewServer(ui.Options{
		Settings:   mgr,
		Controller: a,
		Gatherer:   reg,
		Logger:     &uiLog,
		Port:       settings.UIPort,
	})
	a.observer = server.Observe
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		server.Stop(sctx)
	}()
	log.Info().Str("url", server.URL()).Msg("settings page available")

	if *metricsAddr != "" {
		go serveMetrics(ctx, log, *metricsAddr, reg)
	}

	mgr.RegisterChangeCallback(a.settingsChanged)
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			cfgLog.Warn().Err(err).Msg("settings file not watched")
		}
	}()

	if err := a.apply(); err != nil {
		return err
	}
	if err := autostart.Sync(settings.Autostart); err != nil {
		log.Warn().Err(err).Msg("autostart not updated")
	}
	defer a.sup.Stop()

	if *openUI {
		server.Open()
	}

	if *noTray {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		return nil
	}
	runTray(ctx, log, a, mgr, server)
	return nil
}

// runTray blocks until Quit is chosen or ctx is cancelled.
func runTray(ctx context.Context, log *zerolog.Logger, a *app, mgr *config.Manager, server *ui.Server) {
	t := tray.New("WootRat", fmt.Sprintf("WootRat %s", version))

	t.AddMenuItem("Settings...", server.Open)
	t.AddSeparator()

	pauseID := t.AddMenuItem("Pause", func() {
		if err := a.SetPaused(!a.Paused()); err != nil {
			log.Error().Err(err).Msg("Tray: pause toggle failed")
		}
	})
	onPause := func(paused bool) {
		if paused {
			t.SetItemTitle(pauseID, "Resume")
		} else {
			t.SetItemTitle(pauseID, "Pause")
		}
	}

	loginID := t.AddCheckbox("Start on login", mgr.Get().Autostart, func() {
		s := mgr.Get()
		s.Autostart = !s.Autostart
		if err := mgr.Update(s); err != nil {
			log.Error().Err(err).Msg("Tray: autostart toggle failed")
		}
	})
	a.setHooks(onPause, func(s config.Settings) { t.SetItemChecked(loginID, s.Autostart) })

	t.AddSeparator()
	t.AddMenuItem("Quit", t.Stop)
	t.OnExit(func() { log.Info().Msg("shutting down") })

	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	t.Run()
}

func serveMetrics(ctx context.Context, log *zerolog.Logger, addr string, reg *prometheus.Registry) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server failed")
	}
}

// printPreview writes the response curve for s as a table.
func printPreview(w io.Writer, s config.Settings) error {
	cfg, _, _, err := s.Build()
	if err != nil {
		return err
	}
	p := cfg.Curve()
	pts, err := curve.Sample(p, 20)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "curve\t%s\tfactor\t%g\t\n", p.Type, p.Factor)
	fmt.Fprintf(tw, "raw\tout\tmove\tscroll\t\n")
	for _, pt := range pts {
		fmt.Fprintf(tw, "%.2f\t%.4f\t%.3f\t%.4f\t\n",
			pt.Raw, pt.Out, pt.Out*s.MouseSensitivity, pt.Out*s.ScrollSensitivity)
	}
	return tw.Flush()
}
