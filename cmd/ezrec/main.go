package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/yok-tottii/EzRec/internal/api"
	"github.com/yok-tottii/EzRec/internal/archive"
	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/clipboard"
	"github.com/yok-tottii/EzRec/internal/config"
	"github.com/yok-tottii/EzRec/internal/hotkey"
	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/notification"
	"github.com/yok-tottii/EzRec/internal/permissions"
	"github.com/yok-tottii/EzRec/internal/pipeline"
	"github.com/yok-tottii/EzRec/internal/recording"
	"github.com/yok-tottii/EzRec/internal/server"
	"github.com/yok-tottii/EzRec/internal/transcription"
	"github.com/yok-tottii/EzRec/internal/tray"
)

const (
	appName = "EzRec"
	version = "0.1.0"
)

// App holds all application state
type App struct {
	logger     *logger.Logger
	config     *config.Config // startup values; later changes go through settings
	configPath string
	settings   *config.Store

	source     audio.Source
	checker    permissions.Checker
	recorder   *recording.Controller
	archive    *archive.Archive
	pipeline   *pipeline.Pipeline
	notifier   *notification.NotificationManager
	hotkeyMgr  *hotkey.Manager
	httpServer *server.Server
	trayMgr    *tray.Manager

	ctx      context.Context
	cancel   context.CancelFunc
	quitOnce sync.Once
}

func init() {
	// cgo calls into AppKit must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to config.json")
	console := flag.Bool("console", false, "mirror log output to stderr")
	flag.Usage = usage
	flag.Parse()

	app := &App{configPath: *configPath}

	loggerConfig := logger.DefaultConfig()
	loggerConfig.Console = *console
	var err error
	app.logger, err = logger.New(loggerConfig)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer app.logger.Close()

	app.config, err = config.Load(app.configPath)
	if err != nil {
		app.logger.Error("Failed to load config: %v", err)
		log.Fatalf("failed to load config: %v", err)
	}
	if err := app.config.Validate(); err != nil {
		app.logger.Error("%v", err)
		log.Fatalf("%v", err)
	}
	app.logger.SetLevel(logger.ParseLevel(app.config.LogLevel))
	app.logger.Info("%s v%s starting (config=%s)", appName, version, app.configPath)

	// first run: write the defaults so there is a file to edit
	if _, err := os.Stat(app.configPath); os.IsNotExist(err) {
		if err := app.config.Save(app.configPath); err != nil {
			app.logger.Warn("Failed to write initial config: %v", err)
		} else {
			app.logger.Info("Wrote initial config to %s", app.configPath)
		}
	}

	app.settings = config.NewStore(app.config, app.configPath)

	recordingsDir, err := app.config.GetRecordingsDir()
	if err != nil {
		log.Fatalf("invalid recordings_dir: %v", err)
	}
	app.archive, err = archive.New(recordingsDir, app.logger.Named("archive"))
	if err != nil {
		log.Fatalf("failed to open recordings: %v", err)
	}

	switch flag.Arg(0) {
	case "":
	case "list":
		if err := app.listRecordings(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	case "export":
		if flag.NArg() != 3 {
			usage()
			os.Exit(2)
		}
		if err := app.archive.Export(flag.Arg(1), flag.Arg(2)); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		fmt.Printf("exported %s to %s\n", flag.Arg(1), flag.Arg(2))
		return
	default:
		usage()
		os.Exit(2)
	}

	app.ctx, app.cancel = context.WithCancel(context.Background())
	if err := app.setup(); err != nil {
		app.logger.Error("Startup failed: %v", err)
		log.Fatalf("startup failed: %v", err)
	}

	app.trayMgr = tray.NewManager(tray.Config{
		OnReady:        app.onReady,
		OnStart:        app.handleStart,
		OnPause:        app.recorder.Pause,
		OnResume:       app.recorder.Resume,
		OnStop:         app.handleStop,
		OnCancel:       app.handleCancel,
		OnOpenAPI:      app.handleOpenAPI,
		OnDeviceChange: app.handleDeviceChange,
		OnQuit:         app.handleQuit,
		Logger:         app.logger.Named("tray"),
	})

	// blocks until Quit
	app.trayMgr.Run()
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: ezrec [flags]              run the menu bar recorder\n")
	fmt.Fprintf(os.Stderr, "       ezrec [flags] list         list stored recordings\n")
	fmt.Fprintf(os.Stderr, "       ezrec [flags] export ID DEST  copy a recording to DEST as WAV\n\n")
	flag.PrintDefaults()
}

func (a *App) listRecordings() error {
	recordings, err := a.archive.List()
	if err != nil {
		return err
	}
	for _, r := range recordings {
		fmt.Printf("%s  %s  %6s  %d Hz  %s\n",
			r.ID,
			r.CreatedAt.Format(time.DateTime),
			recording.FormatDuration(int(r.Duration)),
			r.SampleRate,
			r.Text)
	}
	return nil
}

// setup builds the capture, processing and API layers
func (a *App) setup() error {
	source, err := audio.New(a.config.Backend)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", a.config.Backend, err)
	}
	a.checker = permissions.NewSystemChecker()
	a.source = permissions.Gate(source, a.checker)

	a.notifier = notification.NewNotificationManager(appName, a.config.Notifications)

	a.recorder = recording.New(a.source, recording.Config{
		SampleRate:  a.config.SampleRate,
		BufferSize:  a.config.BufferSize,
		DeviceID:    a.config.AudioDeviceID,
		MaxDuration: time.Duration(a.config.MaxRecordTime) * time.Second,
		OnSessionComplete: func(id string, data recording.EncodedAudio) {
			a.pipeline.SubmitSession(id, data)
		},
		OnError: func(message string) {
			if err := a.notifier.RecordingFailed(message); err != nil {
				a.logger.Warn("Notification failed: %v", err)
			}
		},
	}, a.logger.Named("recording"))

	opts := []pipeline.Option{pipeline.WithNotifier(a.notifier)}
	if a.config.TranscribeURL != "" {
		client, err := transcription.NewClient(transcription.Config{
			BaseURL:  a.config.TranscribeURL,
			Language: a.config.Language,
			Timeout:  time.Duration(a.config.TranscribeTimeout) * time.Second,
		}, a.logger.Named("transcription"))
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithTranscriber(client))
	} else {
		a.logger.Info("transcribe_url not set, recordings are only archived")
	}
	if a.config.CopyToClipboard {
		opts = append(opts, pipeline.WithClipboard(&transcriptOutput{
			manager: clipboard.NewManager(clipboard.Config{
				SplitSize:     a.config.PasteSplitSize,
				SplitInterval: clipboard.DefaultConfig().SplitInterval,
				SettleDelay:   clipboard.DefaultConfig().SettleDelay,
			}),
			paste: a.config.AutoPaste,
		}))
	}

	pipelineConfig := pipeline.DefaultConfig()
	pipelineConfig.Timeout = time.Duration(a.config.TranscribeTimeout) * time.Second
	a.pipeline = pipeline.New(pipelineConfig, a.archive, a.recorder, a.logger.Named("pipeline"), opts...)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = a.config.ListenPort
	a.httpServer = server.New(serverConfig, a.logger.Named("http"))
	api.New(a.recorder, a.source, a.archive, a.settings, a.logger.Named("api")).RegisterRoutes(a.httpServer.Engine())

	return nil
}

// transcriptOutput copies the transcript or pastes it into the focused app
type transcriptOutput struct {
	manager *clipboard.Manager
	paste   bool
}

func (t *transcriptOutput) Copy(text string) error {
	if t.paste {
		return t.manager.Paste(text)
	}
	return t.manager.Copy(text)
}

// onReady runs once systray is initialized
func (a *App) onReady() {
	if status := a.checker.MicrophoneStatus(); status.Blocked() {
		a.logger.Warn("Microphone permission: %s", status)
		if err := a.notifier.MicrophonePermissionDenied(); err != nil {
			a.logger.Warn("Notification failed: %v", err)
		}
		if err := permissions.OpenMicrophoneSettings(); err != nil {
			a.logger.Warn("Failed to open System Settings: %v", err)
		}
	} else {
		a.logger.Info("Microphone permission: %s", status)
	}

	a.refreshDevices()
	a.registerHotkey()

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("Failed to start HTTP server: %v", err)
	}

	go a.trayMgr.Watch(a.ctx, a.recorder, 500*time.Millisecond)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			a.logger.Info("Received shutdown signal")
			a.handleQuit()
			a.trayMgr.Quit()
		case <-a.ctx.Done():
		}
	}()

	a.logger.Info("%s ready, API at %s", appName, a.httpServer.URL())
	fmt.Printf("%s v%s\n", appName, version)
	fmt.Printf("  API:    %s/api/recording\n", a.httpServer.URL())
	if a.hotkeyMgr != nil && a.hotkeyMgr.IsRunning() {
		current := a.hotkeyMgr.GetConfig()
		fmt.Printf("  Hotkey: %s (%s)\n", hotkey.FormatHotkey(current.Modifiers, current.Key), current.Mode)
	}
	fmt.Printf("  Quit:   Ctrl+C or the menu bar item\n")
}

func (a *App) registerHotkey() {
	binding, err := hotkey.FromConfig(a.config.Hotkey, a.config.RecordingMode)
	if err != nil {
		a.logger.Error("Invalid hotkey configuration: %v", err)
		return
	}

	if conflicts := hotkey.CheckConflicts(binding.Modifiers, binding.Key); len(conflicts) > 0 {
		a.logger.Warn("Hotkey %s may conflict with: %v",
			hotkey.FormatHotkey(binding.Modifiers, binding.Key), hotkey.Names(conflicts))
	}

	a.hotkeyMgr = hotkey.New()
	if err := a.hotkeyMgr.Register(binding); err != nil {
		a.logger.Error("Failed to register hotkey: %v", err)
		return
	}
	a.logger.Info("Hotkey registered: %s (%s)", hotkey.FormatHotkey(binding.Modifiers, binding.Key), binding.Mode)

	go hotkey.Drive(a.ctx, a.hotkeyMgr.Events(), a.recorder, a.logger.Named("hotkey"))
}

func (a *App) refreshDevices() {
	devices, err := a.source.ListDevices()
	if err != nil {
		a.logger.Warn("Failed to list input devices: %v", err)
		return
	}

	current := a.recorder.Device()
	items := make([]tray.Device, 0, len(devices)+1)
	items = append(items, tray.Device{ID: -1, Name: "System Default", IsDefault: true, IsCurrent: current == -1})
	for _, d := range devices {
		items = append(items, tray.Device{
			ID:        d.ID,
			Name:      d.Name,
			IsDefault: d.IsDefault,
			IsCurrent: d.ID == current,
		})
	}
	a.trayMgr.UpdateDeviceMenu(items)
}

func (a *App) handleStart() {
	// errors reach the user through OnError
	_ = a.recorder.Start(a.ctx)
}

func (a *App) handleStop() {
	if _, err := a.recorder.Stop(); err != nil {
		a.logger.Error("Stop failed: %v", err)
	}
}

func (a *App) handleCancel() {
	if err := a.recorder.Cancel(); err != nil {
		a.logger.Warn("Cancel reported: %v", err)
	}
}

func (a *App) handleOpenAPI() {
	if !a.httpServer.IsRunning() {
		a.logger.Error("HTTP server is not running")
		return
	}

	url := a.httpServer.URL() + "/api/recording"
	go func() {
		if err := exec.Command("open", url).Run(); err != nil {
			a.logger.Error("Failed to open browser: %v", err)
			fmt.Printf("API status: %s\n", url)
		}
	}()
}

func (a *App) handleDeviceChange(id int) {
	a.logger.Info("Input device changed to %d", id)
	a.recorder.SetDevice(id)

	if err := a.settings.Update(func(c *config.Config) { c.AudioDeviceID = id }); err != nil {
		a.logger.Error("Failed to save config: %v", err)
	}

	a.refreshDevices()
}

// handleQuit releases everything in reverse order of setup
func (a *App) handleQuit() {
	a.quitOnce.Do(func() {
		a.logger.Info("Shutting down")

		if a.recorder.State() != recording.Idle {
			a.logger.Warn("Discarding active recording on shutdown")
		}
		if err := a.recorder.Close(); err != nil {
			a.logger.Warn("Recorder close: %v", err)
		}

		if a.hotkeyMgr != nil {
			if err := a.hotkeyMgr.Close(); err != nil {
				a.logger.Warn("Hotkey close: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.pipeline.Close(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			a.logger.Warn("Pipeline close: %v", err)
		} else if err != nil {
			a.logger.Warn("Pending recordings were not processed before shutdown")
		}

		if err := a.httpServer.Stop(); err != nil {
			a.logger.Error("Failed to stop HTTP server: %v", err)
		}

		a.cancel()

		if err := a.source.Close(); err != nil {
			a.logger.Warn("Audio backend close: %v", err)
		}

		a.logger.Info("%s stopped", appName)
	})
}
