package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/jettison/panopticon/decode"
	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/libdiff"
	"github.com/jettison/panopticon/present"
	"github.com/scott-cotton/cli"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 args, got %v", cli.ErrUsage, args)
	}
	reg, err := loadRegistry(cfg.Schema, cfg.Import)
	if err != nil {
		return err
	}
	dec, err := newDecoder(cfg.MainConfig, reg)
	if err != nil {
		return err
	}
	var trees [2]*ir.Node
	for i, file := range args {
		trees[i], err = lastTree(cfg, cc, dec, file)
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", file, err)
		}
	}
	patches, err := libdiff.Diff(trees[0], trees[1])
	if err != nil {
		return err
	}
	if err := writePatches(cfg, cc.Out, trees[0], patches); err != nil {
		return err
	}
	if len(patches) != 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// lastTree decodes the last snapshot of file.
func lastTree(cfg *DiffConfig, cc *cli.Context, dec *decode.Decoder, file string) (*ir.Node, error) {
	snaps, err := getSnapshots(cfg.MainConfig, cc, file)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshot")
	}
	s := snaps[len(snaps)-1]
	tree, err := dec.Decode(s.State, nil)
	if decode.IsFatal(err) {
		return nil, err
	}
	pe := &decode.PartialError{}
	if errors.As(err, &pe) {
		cfg.log.Warn("partial snapshot", "file", file, "missing", pe.Paths())
	}
	return tree, nil
}

func writePatches(cfg *DiffConfig, w io.Writer, from *ir.Node, patches []libdiff.Patch) error {
	b := &engine.Batch{Seq: 1, Patches: patches}
	if cfg.OutFormat == nil {
		txt := present.NewText(w,
			present.WithHeader(false),
			present.WithColors(cfg.colors(w)),
			present.WithStringDiff(cfg.StrDiff))
		txt.Prime(from)
		return txt.Apply(b)
	}
	ops := present.Operations(b)
	var (
		d   []byte
		err error
	)
	switch {
	case cfg.OutFormat.IsYAML():
		d, err = yaml.Marshal(ops)
		d = bytes.TrimSuffix(d, []byte("\n"))
	case cfg.OutFormat.IsJSON():
		d, err = json.MarshalIndent(ops, "", "  ")
	default:
		d, err = json.Marshal(ops)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(append(d, '\n'))
	return err
}
