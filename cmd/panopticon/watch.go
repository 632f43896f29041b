package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/gops/agent"
	"github.com/jettison/panopticon/config"
	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/format"
	"github.com/jettison/panopticon/metrics"
	"github.com/jettison/panopticon/pipeline"
	"github.com/jettison/panopticon/present"
	"github.com/jettison/panopticon/present/tui"
	"github.com/jettison/panopticon/snapshot"
	"github.com/scott-cotton/cli"
)

func watch(cfg *WatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Watch.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: watch takes at most one file, got %v", cli.ErrUsage, args)
	}
	if cfg.TUI && cfg.JSONPatch {
		return fmt.Errorf("%w: -tui and -json-patch are exclusive", cli.ErrUsage)
	}
	conf, err := cfg.settings(args)
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	reg, err := loadRegistry(conf.Schema, false)
	if err != nil {
		return err
	}

	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			fmt.Fprintf(os.Stderr, "gops agent failed: %v\n", err)
		}
		defer agent.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src, closeSrc, err := openSource(cfg, cc, conf)
	if err != nil {
		return err
	}
	defer closeSrc()

	log := cfg.log
	if cfg.TUI {
		// the terminal belongs to the tree
		log = newLogger(io.Discard, false)
	}
	eng, err := engine.New(reg, engine.WithLogger(log))
	if err != nil {
		return err
	}
	popts := []pipeline.Option{pipeline.WithLogger(log)}
	if conf.Metrics.Addr != "" {
		met := metrics.New(nil)
		popts = append(popts, pipeline.WithMetrics(met))
		go func() {
			if err := metrics.Serve(ctx, conf.Metrics.Addr, nil); err != nil {
				log.Error("metrics server failed", "addr", conf.Metrics.Addr, "error", err)
			}
		}()
	}

	var (
		sink pipeline.Sink
		prog *tea.Program
	)
	switch {
	case cfg.TUI:
		prog = tea.NewProgram(tui.New(filepath.Base(conf.Schema)), tea.WithAltScreen(), tea.WithContext(ctx))
		sink = tui.Sink{P: prog}
	case cfg.JSONPatch:
		sink = present.NewJSONPatch(cc.Out)
	default:
		sink = present.NewText(cc.Out,
			present.WithColors(cfg.colors(cc.Out)),
			present.WithStringDiff(cfg.StrDiff))
	}
	p := pipeline.New(src, eng, sink, popts...)

	if conf.WatchSchema {
		w, err := config.NewWatcher(conf.Schema, config.WithWatchLogger(log))
		if err != nil {
			return err
		}
		go w.Run(ctx, p.Reload)
	}

	if prog == nil {
		return ignoreCanceled(p.Run(ctx))
	}
	go func() {
		if err := ignoreCanceled(p.Run(ctx)); err != nil {
			prog.Send(tui.ErrMsg{Err: err})
		}
	}()
	_, err = prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// settings merges the configuration file, the environment and the flags,
// in increasing order of precedence.
func (cfg *WatchConfig) settings(args []string) (*config.Config, error) {
	conf, err := config.Load(cfg.Config)
	if err != nil {
		return nil, err
	}
	if cfg.Schema != "" {
		conf.Schema = cfg.Schema
	}
	if cfg.WatchSchema {
		conf.WatchSchema = true
	}
	if cfg.Metrics != "" {
		conf.Metrics.Addr = cfg.Metrics
	}
	if cfg.Exec != "" || cfg.WebSocket != "" || len(args) != 0 {
		conf.Source.File, conf.Source.Exec, conf.Source.WebSocket = "", cfg.Exec, cfg.WebSocket
		if len(args) != 0 {
			conf.Source.File = args[0]
		}
	}
	if cfg.Every != 0 {
		conf.Source.Every = cfg.Every
	}
	if cfg.InFormat != nil {
		conf.Source.Format = cfg.InFormat.String()
	} else if len(args) != 0 {
		def, err := conf.Format()
		if err != nil {
			return nil, err
		}
		conf.Source.Format = format.FromPath(args[0], def).String()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func openSource(cfg *WatchConfig, cc *cli.Context, conf *config.Config) (snapshot.Source, func(), error) {
	f, err := conf.Format()
	if err != nil {
		return nil, nil, err
	}
	env := conf.SnapshotEnvelope()
	switch {
	case conf.Source.Exec != "":
		src := snapshot.NewExec(conf.Source.Exec, conf.Source.Every, f, env)
		return src, src.Stop, nil
	case conf.Source.WebSocket != "":
		src := snapshot.NewWebSocket(conf.Source.WebSocket, f, env,
			snapshot.WithReconnectDelay(conf.Source.Reconnect),
			snapshot.WithWebSocketLogger(cfg.log))
		return src, func() { src.Close() }, nil
	case conf.Source.File != "" && conf.Source.File != "-":
		fd, err := os.Open(conf.Source.File)
		if err != nil {
			return nil, nil, err
		}
		return snapshot.NewReader(fd, f, env), func() { fd.Close() }, nil
	default:
		return snapshot.NewReader(cc.In, f, env), func() {}, nil
	}
}
