// Command colschema prints the columns colmerge would extract from each file,
// without scoring or writing anything.
//
//	colschema [-config FILE] [-normalize format|uniform] [-json] FILE...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"colmerge/internal/config"
	"colmerge/internal/reconcile"
)

const usage = "usage: colschema [flags] FILE..."

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("colschema", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}

	cfgPath := fs.String("config", "", "optional JSON config file (parser options, normalization)")
	normalize := fs.String("normalize", "", "column normalization: format|uniform")
	asJSON := fs.Bool("json", false, "print schemas as JSON")
	verbose := fs.Bool("v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	log.SetOutput(stderr)

	var cfg config.Config
	if p := strings.TrimSpace(*cfgPath); p != "" {
		c, err := config.Load(p)
		if err != nil {
			fmt.Fprintf(stderr, "load config: %v\n", err)
			return 1
		}
		cfg = c
	}
	if *normalize != "" {
		cfg.Normalization = *normalize
	}

	eng, err := reconcile.New(cfg, reconcile.Options{Verbose: *verbose})
	if err != nil {
		fmt.Fprintf(stderr, "colschema: %v\n", err)
		return 2
	}

	schemas, err := eng.Extract(ctx, fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "colschema: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(schemas); err != nil {
			fmt.Fprintf(stderr, "encode: %v\n", err)
			return 1
		}
		return 0
	}

	for i, s := range schemas {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "%s (%s): %d columns\n", s.Source, s.Format, len(s.Columns))
		for _, c := range s.Columns {
			fmt.Fprintf(stdout, "  %s\n", c)
		}
	}
	return 0
}
