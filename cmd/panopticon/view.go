package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/jettison/panopticon/decode"
	"github.com/jettison/panopticon/fieldfmt"
	"github.com/jettison/panopticon/present"
	"github.com/jettison/panopticon/schema"
	"github.com/jettison/panopticon/snapshot"
	"github.com/scott-cotton/cli"
)

func view(cfg *ViewConfig, cc *cli.Context, args []string) error {
	args, err := cfg.View.Parse(cc, args)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg.Schema, cfg.Import)
	if err != nil {
		return err
	}
	dec, err := newDecoder(cfg.MainConfig, reg)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	colors := cfg.colors(cc.Out)
	first := true
	for _, file := range args {
		snaps, err := getSnapshots(cfg.MainConfig, cc, file)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			if !first {
				cc.Out.Write([]byte("---\n"))
			}
			first = false
			if err := viewSnapshot(cfg.MainConfig, cc.Out, dec, s, colors); err != nil {
				return fmt.Errorf("error processing %s: %w", file, err)
			}
		}
	}
	return nil
}

func newDecoder(cfg *MainConfig, reg *schema.Registry) (*decode.Decoder, error) {
	f, err := fieldfmt.FromRegistry(reg)
	if err != nil {
		return nil, err
	}
	return decode.New(reg, f, decode.WithLogger(cfg.log)), nil
}

func viewSnapshot(cfg *MainConfig, w io.Writer, dec *decode.Decoder, s *snapshot.Snapshot, colors *present.Colors) error {
	tree, err := dec.Decode(s.State, nil)
	if decode.IsFatal(err) {
		return fmt.Errorf("snapshot %d: %w", s.Seq, err)
	}
	pe := &decode.PartialError{}
	if errors.As(err, &pe) {
		cfg.log.Warn("partial snapshot", "seq", s.Seq, "missing", pe.Paths())
	}
	if cfg.OutFormat != nil {
		return present.Encode(w, tree, *cfg.OutFormat)
	}
	return present.Print(w, tree, colors)
}
