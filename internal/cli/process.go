package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/pipeline"
	"github.com/ppiankov/clinmatch/internal/resolver"
	"github.com/ppiankov/clinmatch/internal/sheet"
)

var fromList string

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Annotate clinical tables with OMIM/MONDO codes",
	Long: `Process reads each input table and writes an annotated copy:
- Detect the diagnosis column (required) and gene column (optional)
- Send every non-empty diagnosis to the matching service, a bounded number at a time
- Keep the best candidate and explain what is missing in Требует_уточнения
- Write <name>_processed.<ext> next to the input or into --output-dir

Interrupting a run (Ctrl+C) never produces a _processed file. With
--write-partial the finished rows are saved as <name>_partial.<ext>.

Example:
  clinmatch process patients.xlsx
  clinmatch process --output-dir results/ a.xlsx b.csv
  clinmatch process --from-list inputs.txt --concurrency 10`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && fromList == "" {
			return errors.New("requires at least one input file or --from-list")
		}
		return nil
	},
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd, processFlagKeys)
	},
	RunE: runProcess,
}

// processFlagKeys maps config keys to the process flags overriding them
var processFlagKeys = map[string]string{
	"output.dir":                   "output-dir",
	"concurrency.limit":            "concurrency",
	"resolver.timeout":             "timeout",
	"resolver.url":                 "api-url",
	"reducer.lookahead":            "lookahead",
	"output.write_partial":         "write-partial",
	"dedupe.enabled":               "dedupe",
	"resolver.requests_per_second": "rps",
	"resolver.retries":             "retries",
	"resolver.http_proxy":          "http-proxy",
	"resolver.https_proxy":         "https-proxy",
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&fromList, "from-list", "", "read input paths from a file (one per line, # comments)")

	processCmd.Flags().String("output-dir", "", "output directory (default: next to each input)")
	processCmd.Flags().Int("concurrency", 0, "maximum resolver requests in flight")
	processCmd.Flags().Duration("timeout", 0, "timeout for each resolver request")
	processCmd.Flags().String("api-url", "", "matching service base URL")
	processCmd.Flags().Int("lookahead", 0, "alternatives inspected after the primary candidate")
	processCmd.Flags().Bool("write-partial", false, "save finished rows when a run is interrupted")
	processCmd.Flags().Bool("dedupe", false, "look each distinct (diagnosis, gene) pair up once per run")
	processCmd.Flags().Float64("rps", 0, "maximum resolver requests per second (0 = unlimited)")
	processCmd.Flags().Int("retries", 0, "retries for transport errors and 5xx responses")
	processCmd.Flags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	processCmd.Flags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// bindFlags binds the running command's flags to their config keys.
// Called from PreRun: commands share keys and the last binding wins.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

// fileOutcome is the result of processing one input file
type fileOutcome struct {
	Input  string
	Output string
	Stats  model.RunStats
	Err    error
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	inputs := args
	if fromList != "" {
		listed, err := sheet.ReadPathList(fromList)
		if err != nil {
			return fmt.Errorf("read input list: %w", err)
		}
		inputs = append(inputs, listed...)
	}
	inputs = sheet.Dedupe(inputs)

	client, err := resolver.NewClient(cfg.Resolver, resolver.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create resolver client: %w", err)
	}
	p, err := pipeline.New(cfg, client, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Resolver:     %s\n", cfg.Resolver.URL)
	fmt.Fprintf(stderr, "  Concurrency:  %d\n", cfg.Concurrency.Limit)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", cfg.Resolver.Timeout)
	fmt.Fprintf(stderr, "  Files:        %d\n", len(inputs))
	fmt.Fprintf(stderr, "\n")

	var outcomes []fileOutcome
	for i, input := range inputs {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(stderr, "[%d/%d] %s\n", i+1, len(inputs), filepath.Base(input))

		outcome := processFile(ctx, p, cfg, input)
		outcomes = append(outcomes, outcome)
		reportOutcome(stderr, outcome)
	}

	fmt.Fprintf(stderr, "\n%s\n", renderSummary(outcomes, shouldColorize(stderr)))

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(o.Input), o.Err))
		}
	}
	if ctx.Err() != nil && len(outcomes) < len(inputs) {
		errs = append(errs, fmt.Errorf("%d file(s) not processed: %w", len(inputs)-len(outcomes), pipeline.ErrIncomplete))
	}
	return errors.Join(errs...)
}

func processFile(ctx context.Context, p *pipeline.Pipeline, cfg *model.Config, input string) fileOutcome {
	outcome := fileOutcome{Input: input}

	tbl, err := sheet.Read(input)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	result, runErr := p.Run(ctx, tbl)
	if result == nil {
		outcome.Err = runErr
		return outcome
	}
	outcome.Stats = result.Stats

	partial := errors.Is(runErr, pipeline.ErrIncomplete)
	if partial && !cfg.Output.WritePartial {
		outcome.Err = runErr
		return outcome
	}

	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			outcome.Err = fmt.Errorf("create output directory: %w", err)
			return outcome
		}
	}

	outcome.Output = sheet.OutputPath(input, cfg.Output.Dir, partial)
	if err := sheet.Write(outcome.Output, result.Header, result.Rows); err != nil {
		outcome.Err = fmt.Errorf("write output: %w", err)
		outcome.Output = ""
		return outcome
	}
	logger.Info("output written",
		zap.String("run_id", result.Stats.RunID),
		zap.String("path", outcome.Output),
		zap.Bool("partial", partial))

	outcome.Err = runErr
	return outcome
}

func reportOutcome(w io.Writer, o fileOutcome) {
	switch {
	case o.Err != nil && o.Output == "":
		fmt.Fprintf(w, "  ✗ %v\n", o.Err)
	case o.Err != nil:
		fmt.Fprintf(w, "  ⚠ interrupted, finished rows saved to %s\n", o.Output)
	default:
		fmt.Fprintf(w, "  ✓ %d of %d resolved (%s) -> %s\n",
			o.Stats.Successful, o.Stats.Processed, o.Stats.Elapsed.Round(time.Millisecond), o.Output)
		if o.Stats.NotFound > 0 {
			fmt.Fprintf(w, "  ⚠ not found: %d\n", o.Stats.NotFound)
		}
		if o.Stats.Errors > 0 {
			fmt.Fprintf(w, "  ✗ errors: %d\n", o.Stats.Errors)
		}
	}
}

func renderSummary(outcomes []fileOutcome, colorize bool) string {
	headers := []string{"File", "Rows", "Processed", "Skipped", "Successful", "Not found", "Errors", "Status"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		s := o.Stats
		rows = append(rows, []string{
			filepath.Base(o.Input),
			strconv.Itoa(s.TotalRows),
			strconv.Itoa(s.Processed),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Successful),
			strconv.Itoa(s.NotFound),
			strconv.Itoa(s.Errors),
			outcomeStatus(o),
		})
	}
	return renderTable(headers, rows, aligns, colorize)
}

func outcomeStatus(o fileOutcome) string {
	switch {
	case errors.Is(o.Err, pipeline.ErrIncomplete) && o.Output != "":
		return "partial"
	case errors.Is(o.Err, pipeline.ErrIncomplete):
		return "interrupted"
	case o.Err != nil:
		return "failed"
	default:
		return "complete"
	}
}
