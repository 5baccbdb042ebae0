package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/lookup"
	"github.com/inodb/ideogram-genes/internal/output"
	"github.com/inodb/ideogram-genes/internal/render"
	"github.com/inodb/ideogram-genes/internal/session"
	"github.com/inodb/ideogram-genes/internal/view"
)

func newResolveCmd() *cobra.Command {
	var (
		selectGene string
		format     string
		outputFile string
		params     bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [files...]",
		Short: "Resolve gene lists to chromosome coordinates",
		Long: `Resolve the gene names in each file (one name per line) against the annotation
service. Each file is its own batch; files are never merged. With no files, or
with '-', names are read from stdin.`,
		Example: `  ideogram-genes resolve genes.txt
  ideogram-genes resolve --assembly GRCh37 a.txt b.txt
  ideogram-genes resolve --select TP53 -f json genes.txt
  printf 'BRCA1\nTP53\n' | ideogram-genes resolve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "tab" && format != "json" {
				return &usageError{err: fmt.Errorf("unknown output format %q (supported: tab, json)", format)}
			}
			return runResolve(cmd.Context(), args, resolveOptions{
				selectGene: selectGene,
				format:     format,
				outputFile: outputFile,
				params:     params,
			})
		},
	}

	cmd.Flags().StringVar(&selectGene, "select", "", "Gene to select after the last batch")
	cmd.Flags().StringVarP(&format, "format", "f", "tab", "Output format: tab, json")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&params, "params", false, "Write each ideogram mount's parameters to stderr as JSON")
	cmd.Flags().Int("concurrency", 0, "Maximum concurrent lookups (0: unbounded)")
	bindFlag(cmd.Flags().Lookup("concurrency"), "lookup.concurrency")

	return cmd
}

type resolveOptions struct {
	selectGene string
	format     string
	outputFile string
	params     bool
}

func runResolve(ctx context.Context, paths []string, opts resolveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	var renderer render.Renderer = render.NewRecorder()
	if opts.params {
		renderer = render.NewJSONRenderer(os.Stderr)
	}
	adapter := render.NewAdapter(renderer)
	adapter.SetLogger(logger.Named("render"))

	sess, err := session.New(p.resolver, adapter, view.New(cfg.AssemblyValue(), cfg.OrientationValue()))
	if err != nil {
		return err
	}
	defer sess.Close()
	sess.SetLogger(logger.Named("session"))

	var batches []session.Batch
	if len(paths) == 0 || (len(paths) == 1 && paths[0] == "-") {
		b, err := sess.SubmitReader(ctx, "stdin", os.Stdin)
		if err != nil {
			return err
		}
		batches = append(batches, b)
	} else {
		batches, err = sess.SubmitFiles(ctx, paths...)
		if err != nil {
			return err
		}
	}

	if opts.selectGene != "" {
		st, err := sess.Select(opts.selectGene)
		if err != nil {
			return fmt.Errorf("cannot select %s: %w", opts.selectGene, err)
		}
		batches[len(batches)-1].State = st
	}

	var out io.Writer = os.Stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	for _, b := range batches {
		if b.Err != nil {
			logger.Warn("batch reset", zap.String("batch", b.ID), zap.String("source", b.Source), zap.Error(b.Err))
		}
	}

	if opts.format == "json" {
		return writeJSON(out, batches)
	}
	return writeTab(out, batches)
}

func writeTab(out io.Writer, batches []session.Batch) error {
	w := output.NewTabWriter(out)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, b := range batches {
		selected, _ := b.State.Selected()
		for _, ann := range b.State.GeneAnnotations {
			if err := w.Write(ann, ann.Name == selected); err != nil {
				return fmt.Errorf("writing gene: %w", err)
			}
		}
		for _, f := range b.Result.Failures {
			if err := w.WriteUnresolved(f.Name, lookup.Reason(f.Err)); err != nil {
				return fmt.Errorf("writing gene: %w", err)
			}
		}
	}
	return w.Flush()
}

func writeJSON(out io.Writer, batches []session.Batch) error {
	w := output.NewJSONWriter(out)
	for _, b := range batches {
		r := output.Report{Batch: b.ID, Source: b.Source, State: b.State}
		for _, f := range b.Result.Failures {
			r.Unresolved = append(r.Unresolved, output.Unresolved{Name: f.Name, Reason: lookup.Reason(f.Err)})
		}
		if err := w.Write(r); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return nil
}
