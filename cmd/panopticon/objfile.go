package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jettison/panopticon/schema"
	"github.com/jettison/panopticon/snapshot"
	"github.com/scott-cotton/cli"
)

func loadRegistry(path string, bindings bool) (*schema.Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: -schema is required", cli.ErrUsage)
	}
	if !bindings {
		return schema.LoadFile(path)
	}
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return schema.LoadBindings(d)
}

// getSnapshots reads all the snapshots of the file at path, stdin if path
// is "-".
func getSnapshots(cfg *MainConfig, cc *cli.Context, path string) ([]*snapshot.Snapshot, error) {
	var r io.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	} else {
		r = cc.In
	}
	src := snapshot.NewReader(r, cfg.inFormat(path), snapshot.DefaultEnvelope())
	res, err := snapshot.ReadAll(context.Background(), src)
	if err != nil {
		return nil, fmt.Errorf("error reading %q: %w", path, err)
	}
	return res, nil
}
