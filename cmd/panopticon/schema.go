package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/jettison/panopticon/format"
	"github.com/jettison/panopticon/schema"
	"github.com/scott-cotton/cli"
)

func schemaCheck(cfg *SchemaCheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: schema check requires 1 argument (schema file)", cli.ErrUsage)
	}
	reg, err := loadRegistry(args[0], cfg.Import)
	if err != nil {
		return fmt.Errorf("failed to load schema %s: %w", args[0], err)
	}
	fmt.Fprintf(cc.Out, "%s: ok, version %s, root %s, %d types\n",
		args[0], reg.Version(), reg.Root().Name, len(reg.Types()))
	return nil
}

func schemaList(cfg *SchemaListConfig, cc *cli.Context, args []string) error {
	args, err := cfg.List.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: schema list requires 1 argument (schema file)", cli.ErrUsage)
	}
	reg, err := loadRegistry(args[0], cfg.Import)
	if err != nil {
		return fmt.Errorf("failed to load schema %s: %w", args[0], err)
	}
	return writeStructs(cc.Out, reg.Structs(), cfg.OutFormat)
}

type structEntry struct {
	Name   string   `json:"name" yaml:"name"`
	Path   string   `json:"path" yaml:"path"`
	Count  int      `json:"count" yaml:"count"`
	Fields []string `json:"fields" yaml:"fields"`
}

func writeStructs(w io.Writer, structs []*schema.StructInfo, f *format.Format) error {
	entries := make([]structEntry, len(structs))
	for i, si := range structs {
		e := structEntry{Name: si.Name, Path: si.Path, Count: si.Count}
		for _, fld := range si.Fields {
			e.Fields = append(e.Fields, fld.Name+" "+fld.Node.TypeString())
		}
		entries[i] = e
	}
	if f == nil {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tSTRUCT\tCOUNT\tFIELDS")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Path, e.Name, e.Count, strings.Join(e.Fields, ", "))
		}
		return tw.Flush()
	}
	var (
		d   []byte
		err error
	)
	switch *f {
	case format.YAMLFormat:
		d, err = yaml.Marshal(entries)
	case format.JSONFormat:
		d, err = json.MarshalIndent(entries, "", "  ")
		d = append(d, '\n')
	default:
		buf := &bytes.Buffer{}
		enc := json.NewEncoder(buf)
		for i := range entries {
			if err = enc.Encode(&entries[i]); err != nil {
				break
			}
		}
		d = buf.Bytes()
	}
	if err != nil {
		return err
	}
	_, err = w.Write(d)
	return err
}

func schemaImport(cfg *SchemaImportConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Import.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: schema import requires 1 argument (bindings file)", cli.ErrUsage)
	}
	var d []byte
	if args[0] == "-" {
		d, err = io.ReadAll(cc.In)
	} else {
		d, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	file, err := schema.ImportBindings(d)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}
	// the result must load as it is written
	if _, err := schema.FromFile(file); err != nil {
		return fmt.Errorf("imported schema is invalid: %w", err)
	}
	cfg.log.Info("imported", "schema", file.String())
	if cfg.OutFormat != nil && !cfg.OutFormat.IsYAML() {
		d, err = json.MarshalIndent(file, "", "  ")
		d = append(d, '\n')
	} else {
		d, err = yaml.Marshal(file)
	}
	if err != nil {
		return err
	}
	_, err = cc.Out.Write(d)
	return err
}
