package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"studiodash/internal/capture"
	"studiodash/internal/config"
	"studiodash/internal/dashapi"
	"studiodash/internal/dashboard"
	appLog "studiodash/internal/log"
	"studiodash/internal/telegram"
	"studiodash/internal/tui"
	"studiodash/internal/web"
	"studiodash/internal/widget"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	widget     string
	family     string
	tui        bool
	capture    bool
}

func main() {
	flags := parseFlags()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to read .env", "err", err)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("default config could not be written", "config_path", flags.configPath, "err", err)
	}
	conf.ApplyEnv(os.Getenv)
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.capture {
		conf.Capture.Enabled = true
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("studiodash starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"api", conf.API.BaseURL,
		"student", conf.API.Student,
		"refresh", conf.RefreshCron,
		"capture", conf.Capture.Enabled,
		"telegram", conf.Telegram.Token != "",
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	api := dashapi.New(conf.API.BaseURL, conf.API.Timeout)
	loader := widget.NewLoader(api, widget.Options{
		Student:  conf.API.Student,
		Timeout:  conf.Widget.Timeout,
		MaxRows:  conf.Widget.MaxSubscriptions,
		Segments: conf.Widget.Segments,
	})

	if flags.widget != "" {
		if err := printWidget(ctx, loader, flags.widget, widget.ParseFamily(flags.family)); err != nil {
			appLog.Error("widget failed", err)
			os.Exit(1)
		}
		return
	}

	ctrl := dashboard.NewController(api, conf.API.Student)

	if flags.tui {
		// keep log lines off the alt screen
		appLog.SetOutput(io.Discard)
		if err := tui.Run(ctx, ctrl, conf.Location()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	refresh(ctx, ctrl)

	if flags.once {
		if conf.Capture.Enabled {
			if err := captureOnce(ctx, conf, ctrl, loader); err != nil {
				appLog.Error("capture failed", err)
				os.Exit(1)
			}
		}
		view := dashboard.BuildView(ctrl.State(), dashboard.Today(conf.Location()))
		out, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			appLog.Error("failed to encode view", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	srv := web.NewServer(conf, ctrl, loader)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- web.StartServer(ctx, conf, srv)
	}()

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		refresh(ctx, ctrl)
		if conf.Capture.Enabled {
			if err := capture.PagePNG(ctx, capture.OptionsFromConfig(conf)); err != nil {
				appLog.Error("scheduled capture failed", err)
			}
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()

	if conf.Telegram.Token != "" {
		bot, err := telegram.New(conf.Telegram, ctrl, conf.Location(), conf.API.Timeout)
		if err != nil {
			appLog.Error("telegram bot disabled", err)
		} else {
			go func() {
				if err := bot.Run(ctx); err != nil {
					appLog.Error("telegram bot stopped", err)
				}
			}()
		}
	}

	if conf.Capture.Enabled {
		go func() {
			// wait for the listener before the first capture
			time.Sleep(time.Second)
			if err := capture.PagePNG(ctx, capture.OptionsFromConfig(conf)); err != nil {
				appLog.Error("initial capture failed", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			appLog.Error("web server failed", err)
		}
		cancel()
	}

	<-sched.Stop().Done()
	appLog.Info("studiodash exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh (and capture, if enabled) and exit")
	flag.StringVar(&cfg.widget, "widget", "", "Print a widget (progress|finance) and exit")
	flag.StringVar(&cfg.family, "family", "medium", "Widget size: small|medium|large")
	flag.BoolVar(&cfg.tui, "tui", false, "Run the terminal dashboard")
	flag.BoolVar(&cfg.capture, "capture", false, "Capture preview PNGs with headless Chromium")

	flag.Parse()

	return cfg
}

func refresh(ctx context.Context, ctrl *dashboard.Controller) {
	res, err := ctrl.Refresh(ctx)
	if err != nil {
		appLog.Warn("refresh skipped", "err", err)
		return
	}
	if res.FetchErr != nil {
		appLog.Warn("dashboard API unavailable, showing demo data", "refresh_id", res.ID, "err", res.FetchErr)
	}
}

// captureOnce serves the page just long enough to screenshot it.
func captureOnce(ctx context.Context, conf *config.Config, ctrl *dashboard.Controller, loader *widget.Loader) error {
	srvCtx, stop := context.WithCancel(ctx)
	defer stop()

	srv := web.NewServer(conf, ctrl, loader)
	errCh := make(chan error, 1)
	go func() { errCh <- web.StartServer(srvCtx, conf, srv) }()

	time.Sleep(500 * time.Millisecond)
	err := capture.PagePNG(ctx, capture.OptionsFromConfig(conf))
	stop()
	if serr := <-errCh; serr != nil && err == nil {
		err = serr
	}
	return err
}

func printWidget(ctx context.Context, loader *widget.Loader, kind string, f widget.Family) error {
	switch kind {
	case "progress":
		fmt.Println(widget.RenderProgress(loader.Progress(ctx, f)))
	case "finance":
		fmt.Println(widget.RenderFinance(loader.Finance(ctx, f)))
	default:
		return fmt.Errorf("unknown widget %q (want progress or finance)", kind)
	}
	return nil
}
