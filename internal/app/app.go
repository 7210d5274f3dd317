package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rbright/stonedeck/internal/cli"
	"github.com/rbright/stonedeck/internal/companion"
	"github.com/rbright/stonedeck/internal/config"
	"github.com/rbright/stonedeck/internal/doctor"
	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/ipc"
	"github.com/rbright/stonedeck/internal/logging"
	"github.com/rbright/stonedeck/internal/plugin"
	"github.com/rbright/stonedeck/internal/streamdeck"
	"github.com/rbright/stonedeck/internal/version"
)

const statusTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("stonedeck"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("stonedeck"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	// Validate already rejected unknown levels.
	if level, err := config.ParseLevel(cfgLoaded.Config.Log.Level); err == nil {
		logRuntime.Level.Set(level)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"version", version.Version,
	)

	cfg := cfgLoaded.Config
	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, parsed.Host, cfg, logger)
	case cli.CommandSFX:
		return r.commandSFX(ctx, newClient(cfg, logger))
	case cli.CommandCampaigns:
		return r.commandCampaigns(ctx, newClient(cfg, logger))
	case cli.CommandScenes:
		return r.commandScenes(ctx, newClient(cfg, logger), parsed.Args[0])
	case cli.CommandPlay:
		return r.commandPlay(ctx, newClient(cfg, logger), parsed.Args[0])
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandDoctor:
		socketPath, _ := ipc.SocketPath()
		report := doctor.Run(ctx, cfgLoaded, newClient(cfg, logger), socketPath)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func newClient(cfg config.Config, logger *slog.Logger) *companion.Client {
	return companion.New(companion.Options{
		BaseURL:     cfg.Companion.BaseURL,
		Timeout:     cfg.Companion.Timeout,
		SFXCacheTTL: cfg.Companion.SFXCacheTTL,
		Logger:      logger,
	})
}

// commandRun is the plugin process the Stream Deck application launches.
// It returns when the host closes the socket or ctx is cancelled.
func (r Runner) commandRun(ctx context.Context, host cli.HostFlags, cfg config.Config, logger *slog.Logger) int {
	info, err := streamdeck.ParseInfo(host.Info)
	if err != nil {
		logger.Warn("host info ignored", "error", err.Error())
	}
	logger.Info("plugin launch",
		"plugin_uuid", host.PluginUUID,
		"host_version", info.Application.Version,
		"platform", info.Application.Platform,
		"devices", len(info.Devices),
	)

	listener, socketPath, err := acquireSocket(ctx, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if listener != nil {
		defer func() {
			_ = listener.Close()
			_ = os.Remove(socketPath)
		}()
	}

	conn, err := streamdeck.Dial(ctx, streamdeck.Options{
		Address:       cfg.Host.Address,
		Port:          host.Port,
		PluginUUID:    host.PluginUUID,
		RegisterEvent: host.RegisterEvent,
	}, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("host connect failed", "error", err.Error())
		return 1
	}
	defer func() { _ = conn.Close() }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := eventloop.New()
	p := plugin.New(plugin.Options{
		Host:       conn,
		API:        newClient(cfg, logger),
		Loop:       loop,
		Context:    runCtx,
		RetryDelay: cfg.Form.RetryDelay,
		Logger:     logger,
	})
	p.SetConnected(true)

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(runCtx) }()

	serverErrCh := make(chan error, 1)
	if listener != nil {
		go func() { serverErrCh <- ipc.Serve(runCtx, listener, p) }()
	} else {
		serverErrCh <- nil
	}

	runErr := conn.Run(runCtx, func(ev streamdeck.Event) {
		loop.Post(func() { p.HandleEvent(ev) })
	})
	p.SetConnected(false)
	cancel()
	<-loopDone

	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		logger.Error("host connection lost", "error", runErr.Error())
		return 1
	}

	st := p.Status()
	logger.Info("plugin stopped", "uptime_ms", time.Since(st.StartedAt).Milliseconds(), "controls", st.Controls)
	return 0
}

// acquireSocket claims the status socket. A missing runtime dir or an
// unusable path only disables `stonedeck status`; a live owner is fatal.
func acquireSocket(ctx context.Context, logger *slog.Logger) (net.Listener, string, error) {
	socketPath, err := ipc.SocketPath()
	if err != nil {
		logger.Warn("status socket disabled", "error", err.Error())
		return nil, "", nil
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: 180 * time.Millisecond, Retries: 8})
	switch {
	case errors.Is(err, ipc.ErrAlreadyRunning):
		return nil, "", err
	case err != nil:
		logger.Warn("status socket disabled", "path", socketPath, "error", err.Error())
		return nil, "", nil
	}
	return listener, socketPath, nil
}

func (r Runner) commandSFX(ctx context.Context, api *companion.Client) int {
	items, err := api.ListSoundEffects(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", companion.Describe(err, "SFX"))
		return 1
	}
	if len(items) == 0 {
		fmt.Fprintln(r.Stdout, "no sound effects found")
		return 0
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLE\tCATEGORY\tLENGTH\tPREMIUM")
	for _, item := range items {
		premium := "no"
		if item.IsPremium {
			premium = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%ss\t%s\n",
			item.Name,
			item.Title(),
			item.Category,
			humanize.FtoaWithDigits(item.Duration, 1),
			premium,
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(r.Stdout, "%s effects\n", humanize.Comma(int64(len(items))))
	return 0
}

func (r Runner) commandCampaigns(ctx context.Context, api *companion.Client) int {
	campaigns, err := api.ListCampaigns(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", companion.Describe(err, "scenes"))
		return 1
	}
	if len(campaigns) == 0 {
		fmt.Fprintln(r.Stdout, "no campaigns found")
		return 0
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, campaign := range campaigns {
		fmt.Fprintf(tw, "%s\t%s\n", campaign.ID, campaign.Name)
	}
	_ = tw.Flush()
	return 0
}

func (r Runner) commandScenes(ctx context.Context, api *companion.Client, campaignID string) int {
	scenes, err := api.ListScenes(ctx, campaignID)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", companion.Describe(err, "scenes"))
		return 1
	}
	if len(scenes) == 0 {
		fmt.Fprintf(r.Stdout, "no scenes in campaign %q\n", campaignID)
		return 0
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, scene := range scenes {
		fmt.Fprintf(tw, "%s\t%s\n", scene.ID, scene.Name)
	}
	_ = tw.Flush()
	return 0
}

func (r Runner) commandPlay(ctx context.Context, api *companion.Client, name string) int {
	if err := api.PlaySoundEffect(ctx, name, companion.PlayOptions{}); err != nil {
		fmt.Fprintf(r.Stderr, "error: play %q: %v\n", name, err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "played %s\n", name)
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.SocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, running, err := ipc.QueryStatus(ctx, socketPath, statusTimeout)
	if !running {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	state := resp.State
	if state == "" {
		state = "unknown"
	}
	fmt.Fprintf(r.Stdout, "state: %s\n", state)
	fmt.Fprintf(r.Stdout, "controls: %d\n", resp.Controls)
	fmt.Fprintf(r.Stdout, "panels: %d\n", resp.Panels)
	if !resp.StartedAt.IsZero() {
		fmt.Fprintf(r.Stdout, "started: %s\n", humanize.Time(resp.StartedAt))
	}
	return 0
}
