// The leadsync command merges CSV lead lists from different sources into a
// single deduplicated list, joined on a normalized street-address key.
//
// Usage:
//
//	leadsync -out merged.csv canvass.csv referrals.csv
//	leadsync -format json -out merged.json canvass.csv
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ridgelineexteriors/lead-intake/internal/leads"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leadsync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		outPath = flag.String("out", "", "output file (default stdout)")
		format  = flag.String("format", "csv", "output format: csv or json")
	)
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		return fmt.Errorf("no input files; usage: leadsync [-out file] [-format csv|json] file.csv ...")
	}
	if *format != "csv" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	lists := make([][]leads.Lead, 0, len(inputs))
	for _, path := range inputs {
		list, err := readList(path)
		if err != nil {
			return err
		}
		lists = append(lists, list)
	}

	merged := leads.Merge(lists...)

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", *outPath, err)
		}
		defer f.Close()
		out = f
	}

	if *format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(merged); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	} else if err := leads.WriteCSV(out, merged); err != nil {
		return err
	}

	total := 0
	for _, list := range lists {
		total += len(list)
	}
	fmt.Fprintf(os.Stderr, "merged %d records from %d files into %d leads\n", total, len(inputs), len(merged))
	return nil
}

// readList parses one CSV file, using its base name (minus extension) as the
// lead source for records that do not carry one.
func readList(path string) ([]leads.Lead, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	list, err := leads.ReadCSV(f, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return list, nil
}
