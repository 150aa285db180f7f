package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"doc-risk-eval/internal/analysis"
	"doc-risk-eval/internal/analyzer"
	"doc-risk-eval/internal/view"
)

type analyzeOptions struct {
	json     bool
	parallel int
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	aopts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze one or more documents",
		Long: `Upload each document to the analysis service and print its risk score
and risky clauses. Results are printed in argument order. The command
exits non-zero when any analysis fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, aopts, args)
		},
	}
	cmd.Flags().BoolVar(&aopts.json, "json", false, "print results as JSON")
	cmd.Flags().IntVarP(&aopts.parallel, "parallel", "p", 1, "maximum concurrent uploads")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *options, aopts *analyzeOptions, paths []string) error {
	client := opts.client()
	history, err := opts.openHistory()
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if history != nil {
		defer history.Close()
	}

	// No arguments still runs once so the empty selection is reported.
	selections := make([]*analyzer.FileSelection, 0, len(paths))
	if len(paths) == 0 {
		paths = []string{""}
		selections = append(selections, &analyzer.FileSelection{})
	} else {
		for _, path := range paths {
			selections = append(selections, analyzer.Select(analysis.FileDocument(path)))
		}
	}

	results := make([]view.Result, len(paths))
	failed := make([]bool, len(paths))

	parallel := aopts.parallel
	if parallel < 1 {
		parallel = 1
	}
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(parallel)
	for i := range paths {
		i := i
		g.Go(func() error {
			state := analyzer.NewState()
			cfg := analyzer.Config{
				Service:   client,
				Selection: selections[i],
				View:      state,
				Endpoint:  client.BaseURL(),
			}
			if history != nil {
				cfg.Recorder = history
			}
			a, err := analyzer.New(cfg)
			if err != nil {
				return err
			}
			outcome, err := a.Run(ctx)
			if err != nil {
				return err
			}
			results[i] = view.Result{File: paths[i], RequestID: outcome.RequestID, State: state.Snapshot()}
			failed[i] = outcome.Failed()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := printResults(cmd.OutOrStdout(), results, aopts.json); err != nil {
		return err
	}

	var count int
	for _, f := range failed {
		if f {
			count++
		}
	}
	if count > 0 {
		logrus.WithField("failed", count).Debug("analysis run finished with failures")
		return fmt.Errorf("%d of %d analyses failed", count, len(results))
	}
	return nil
}

func printResults(out io.Writer, results []view.Result, asJSON bool) error {
	if asJSON {
		if len(results) == 1 {
			return view.WriteJSON(out, results[0])
		}
		return view.WriteJSON(out, results)
	}

	term := view.NewTerminal(out)
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if len(results) > 1 {
			fmt.Fprintf(out, "== %s ==\n", res.File)
		}
		if err := term.Render(res.State); err != nil {
			return err
		}
	}
	return nil
}
