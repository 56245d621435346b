package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cjeanneret/photobooth/internal/config"
	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/frames"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
	"github.com/cjeanneret/photobooth/internal/journal"
	"github.com/cjeanneret/photobooth/internal/logic/countdown"
	"github.com/cjeanneret/photobooth/internal/logic/session"
	"github.com/cjeanneret/photobooth/internal/printer"
	"github.com/cjeanneret/photobooth/internal/store"
	"github.com/cjeanneret/photobooth/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "serve the kiosk UI on port; -web= for default 8080, -web 8980 for custom port (default: config web.port)")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	framesDir := flag.String("frames", "", "override the frames directory")
	flag.Parse()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	applyOverrides(cfg, webPort.port(), *framesDir)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Camera config", cfg.Camera)
	debug.PrintStruct("Printer config", cfg.Printer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		cancel()
		fatal(os.Stderr, os.Stdin, err)
		os.Exit(1)
	}
}

// run wires the booth together and blocks until ctx is done or the user
// force-quits.
func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// GPIO
	debug.Step(1, "Initializing GPIO driver")
	debug.Value("Mock GPIO", cfg.GPIO.Mock)
	gpioDriver, err := gpio.NewDriver(cfg.GPIO.Mock)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			debug.Errorf("closing GPIO driver failed: %v", err)
		}
	}()

	var flash session.Flash
	if cfg.GPIO.FlashPin > 0 {
		f, err := gpio.NewFlash(gpioDriver, cfg.GPIO.FlashPin)
		if err != nil {
			return err
		}
		flash = f
	}
	var button *gpio.Button
	if cfg.GPIO.ButtonPin > 0 {
		if button, err = gpio.NewButton(gpioDriver, cfg.GPIO.ButtonPin); err != nil {
			return err
		}
	}

	// Photo store and printer
	debug.Step(2, "Opening photo store")
	var saver printer.Saver
	st, err := store.Open(ctx, cfg.Output.Bucket, cfg.Output.Quality)
	if err != nil {
		debug.Warn("photo store unavailable, photos will not be saved: %v", err)
	} else {
		defer st.Close()
		saver = st
		debug.Value("Output", cfg.Output.Bucket)
	}

	debug.Step(3, "Checking printer")
	prn := printer.New(printerOptions(cfg), saver, time.Now)
	if err := prn.Available(ctx); err != nil {
		debug.Warn("%v; photos will be saved instead", err)
	}

	// Journal
	var (
		sessionJournal session.Journal
		sessionLog     web.SessionLog
	)
	if cfg.Journal.Path != "" {
		debug.Step(4, "Opening session journal")
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			debug.Warn("session journal disabled: %v", err)
		} else {
			defer j.Close()
			sessionJournal, sessionLog = j, j
		}
	}

	// Frames
	repo := frames.NewRepository(cfg.Frames.Dir)
	debug.Value("Frames dir", repo.Dir())
	debug.Value("Frames found", len(repo.List()))

	// Web UI and session
	debug.Step(5, "Starting session")
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

	opts := sessionOptions(cfg)
	opts.OnQuit = cancel
	opts.OnChange = func(s session.State) { broadcaster.BroadcastState(s) }
	sess := session.New(session.Deps{
		Frames:  repo,
		Open:    camera.Open,
		Camera:  cameraConfig(cfg),
		Printer: prn,
		Journal: sessionJournal,
		Flash:   flash,
	}, opts)

	sessDone := make(chan error, 1)
	go func() { sessDone <- sess.Run(ctx) }()

	if button != nil {
		go button.Watch(ctx, cfg.ButtonPoll(), func() {
			if err := sess.Dispatch(session.Intent{Name: session.IntentPrimary}); err != nil {
				debug.Verbose("button: %v", err)
			}
		})
	}

	srv, err := web.NewServer(fmt.Sprintf(":%d", cfg.Web.Port), broadcaster, sess, repo, sessionLog)
	if err != nil {
		cancel()
		<-sessDone
		return err
	}
	debug.Summary(fmt.Sprintf("Cabine pronta: http://localhost:%d", cfg.Web.Port))
	srvErr := srv.Run(ctx)
	cancel()
	<-sessDone
	if srvErr != nil {
		return fmt.Errorf("web server: %w", srvErr)
	}
	debug.Info("Bye")
	return nil
}

// applyOverrides mutates cfg with CLI values. Zero values are ignored.
func applyOverrides(cfg *config.Config, port int, framesDir string) {
	if port > 0 {
		cfg.Web.Port = port
	}
	if framesDir != "" {
		cfg.Frames.Dir = framesDir
	}
}

func cameraConfig(cfg *config.Config) camera.Config {
	return camera.Config{
		Type:        cfg.Camera.Type,
		Index:       cfg.Camera.Index,
		Width:       cfg.Camera.Width,
		Height:      cfg.Camera.Height,
		ReadTimeout: cfg.ReadTimeout(),
	}
}

func printerOptions(cfg *config.Config) printer.Options {
	return printer.Options{
		Width:         cfg.Printer.WidthPx,
		Height:        cfg.Printer.HeightPx,
		Title:         cfg.Printer.Title,
		Command:       cfg.Printer.Command,
		StatusCommand: cfg.Printer.StatusCommand,
		SaveAlways:    cfg.Output.SaveAlways,
	}
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Countdown: countdown.Params{
			From:       cfg.Countdown.From,
			Tick:       cfg.Tick(),
			Announce:   cfg.Announce(),
			SmileLabel: cfg.Countdown.SmileLabel,
		},
		PollInterval: cfg.PollInterval(),
		PrintDelay:   cfg.PrintDelay(),
		ReturnDelay:  cfg.ReturnDelay(),
	}
}

// fatal reports err and waits for Enter so the message stays on the kiosk
// screen.
func fatal(w io.Writer, r io.Reader, err error) {
	fmt.Fprintf(w, "[FATAL] %v\n", err)
	fmt.Fprint(w, "Pressione Enter para sair...")
	bufio.NewReader(r).ReadString('\n')
}

// webPortFlag implements flag.Value for -web: 0 = use config, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
