package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jettison/panopticon/format"
	"github.com/jettison/panopticon/present"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Verbose bool `cli:"name=v aliases=verbose desc='log debug messages'"`
	Color   bool `cli:"name=color desc='output in color'"`

	InFormat, OutFormat *format.Format

	Out      string
	CloseOut func() error

	Main *cli.Command
	log  *slog.Logger
}

func (cfg *MainConfig) fmtFunc(fp **format.Format) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		f, err := format.ParseFormat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
		*fp = &f
		return f, nil
	})
}

func (cfg *MainConfig) outOpt(cc *cli.Context, a string) (any, error) {
	cfg.Out = a
	if a == "-" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	cc.Out = f
	cfg.CloseOut = f.Close
	return nil, nil
}

// inFormat returns the format of snapshots read from path.
func (cfg *MainConfig) inFormat(path string) format.Format {
	if cfg.InFormat != nil {
		return *cfg.InFormat
	}
	return format.FromPath(path, format.YAMLFormat)
}

// colors returns the colors for output to w: those asked for with -color,
// or, when -color is not given, colors if w is a terminal.
func (cfg *MainConfig) colors(w io.Writer) *present.Colors {
	colorSet := false
	var opts []*cli.Opt
	if cfg.Main != nil {
		opts = cfg.Main.Opts
	}
	for _, opt := range opts {
		if opt.Name != "color" {
			continue
		}
		colorSet = opt.Value != nil
		break
	}
	if colorSet {
		if !cfg.Color {
			return present.NoColors()
		}
		color.NoColor = false
		return present.NewColors()
	}
	f, ok := w.(*os.File)
	if ok && present.IsTerminal(f) {
		return present.NewColors()
	}
	return present.NoColors()
}

type ViewConfig struct {
	*MainConfig
	Schema string `cli:"name=schema aliases=s desc='schema file'"`
	Import bool   `cli:"name=bindings desc='schema is a legacy bindings dump'"`

	View *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Schema  string `cli:"name=schema aliases=s desc='schema file'"`
	Import  bool   `cli:"name=bindings desc='schema is a legacy bindings dump'"`
	StrDiff bool   `cli:"name=strdiff desc='highlight changed characters'"`

	Diff *cli.Command
}

type WatchConfig struct {
	*MainConfig
	Config      string `cli:"name=config desc='configuration file'"`
	Schema      string `cli:"name=schema aliases=s desc='schema file'"`
	WatchSchema bool   `cli:"name=watch-schema desc='reload the schema when its file changes'"`
	Exec        string `cli:"name=exec desc='command printing the newest snapshot'"`
	Every       time.Duration
	WebSocket   string `cli:"name=ws desc='websocket URL streaming snapshots'"`
	TUI         bool   `cli:"name=tui desc='interactive tree'"`
	JSONPatch   bool   `cli:"name=json-patch desc='write batches as JSON Patch documents'"`
	StrDiff     bool   `cli:"name=strdiff desc='highlight changed characters'"`
	Metrics     string `cli:"name=metrics desc='serve prometheus metrics on this address'"`
	Gops        bool   `cli:"name=gops desc='start a gops agent'"`

	Watch *cli.Command
}

func (cfg *WatchConfig) mkEvery() func(cc *cli.Context, a string) (any, error) {
	return func(_ *cli.Context, a string) (any, error) {
		d, err := time.ParseDuration(a)
		if err != nil {
			return nil, err
		}
		cfg.Every = d
		return d, nil
	}
}

type SchemaConfig struct {
	*MainConfig
	Schema *cli.Command
}

type SchemaCheckConfig struct {
	*MainConfig
	Import bool `cli:"name=bindings desc='schema is a legacy bindings dump'"`
	Check  *cli.Command
}

type SchemaListConfig struct {
	*MainConfig
	Import bool `cli:"name=bindings desc='schema is a legacy bindings dump'"`
	List   *cli.Command
}

type SchemaImportConfig struct {
	*MainConfig
	Import *cli.Command
}
