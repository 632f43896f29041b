package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, []*cli.Opt{
		&cli.Opt{
			Name:        "o",
			Description: "output file (default stdout)",
			Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "I",
			Aliases:     []string{"ifmt"},
			Description: "snapshot format: yaml/y, json/j, jsonl/jl",
			Type:        cli.NamedFuncOpt(cfg.fmtFunc(&cfg.InFormat), "(format)"),
		}, &cli.Opt{
			Name:        "O",
			Aliases:     []string{"ofmt"},
			Description: "output format: yaml/y, json/j, jsonl/jl",
			Type:        cli.NamedFuncOpt(cfg.fmtFunc(&cfg.OutFormat), "(format)"),
		}}...)

	return cli.NewCommandAt(&cfg.Main, "panopticon").
		WithSynopsis("panopticon [opts] command [opts]").
		WithDescription("panopticon decodes device telemetry snapshots into a live tree of display values.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return panopticonMain(cfg, cc, args)
		}).
		WithSubs(
			ViewCommand(cfg),
			DiffCommand(cfg),
			WatchCommand(cfg),
			SchemaCommand(cfg))
}

func ViewCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ViewConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.View, "view").
		WithAliases("v").
		WithOpts(opts...).
		WithSynopsis("view -schema s [snapshot files]").
		WithDescription("decode snapshots and print their display trees").
		WithRun(func(cc *cli.Context, args []string) error {
			return view(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d", "di").
		WithOpts(opts...).
		WithSynopsis("diff -schema s a b").
		WithDescription("print the display changes between two snapshots; exits 1 if there are any").
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func WatchCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &WatchConfig{MainConfig: mainCfg}
	everyOpt := &cli.Opt{
		Name:        "every",
		Description: "interval between -exec runs",
		Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.mkEvery()), "(duration)"),
	}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, everyOpt)
	return cli.NewCommandAt(&cfg.Watch, "watch").
		WithAliases("w").
		WithOpts(opts...).
		WithSynopsis("watch -schema s [-exec cmd -every d | -ws url | file] [-tui | -json-patch]").
		WithDescription(watchDescription).
		WithRun(func(cc *cli.Context, args []string) error {
			return watch(cfg, cc, args)
		})
}

const watchDescription = `watch keeps a display tree synchronized with a stream of snapshots.

Snapshots come from one of
- a file or stdin holding a stream of documents,
- a command run every -every interval printing the newest snapshot (-exec),
- a websocket sending one document per message (-ws).

Documents may wrap the state in an envelope

  seq: 12
  time: 2024-03-01T10:00:00Z
  state: {...}

otherwise they are numbered in arrival order.

When snapshots arrive faster than they are processed, only the newest is
kept.  Changes are printed as text, written as JSON Patch documents
(-json-patch) or shown in an interactive tree (-tui).

Settings may also come from a configuration file (-config) and from
PANOPTICON_* environment variables; flags take precedence.`

func SchemaCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Schema, "schema").
		WithSynopsis("schema <subcommand>").
		WithDescription("schema commands").
		WithSubs(
			SchemaCheckCommand(cfg.MainConfig),
			SchemaListCommand(cfg.MainConfig),
			SchemaImportCommand(cfg.MainConfig))
}

func SchemaCheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaCheckConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Check, "check").
		WithSynopsis("check <schema-file>").
		WithDescription("load and validate a schema").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return schemaCheck(cfg, cc, args)
		})
}

func SchemaListCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaListConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.List, "list").
		WithAliases("l", "ls").
		WithSynopsis("list <schema-file>").
		WithDescription("list the structs of a schema with their paths and fields").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return schemaList(cfg, cc, args)
		})
}

func SchemaImportCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaImportConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Import, "import").
		WithSynopsis("import <bindings.json>").
		WithDescription("convert a legacy bindings dump to a schema file").
		WithRun(func(cc *cli.Context, args []string) error {
			return schemaImport(cfg, cc, args)
		})
}
