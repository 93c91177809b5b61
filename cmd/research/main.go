// Command research finds web pages about a company and extracts the
// requested information from them.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/FranksOps/orchid/internal/config"
	"github.com/FranksOps/orchid/internal/extract"
	"github.com/FranksOps/orchid/internal/llm"
	"github.com/FranksOps/orchid/internal/logging"
	"github.com/FranksOps/orchid/internal/pipeline"
	"github.com/FranksOps/orchid/internal/report"
	"github.com/FranksOps/orchid/internal/selector"
	"github.com/FranksOps/orchid/internal/serp"
)

type options struct {
	company    string
	objective  string
	format     string
	configFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "research",
		Short:         "Research a company and extract structured data about it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.company, "company", "", "company name (prompted if empty)")
	f.StringVar(&opts.objective, "objective", "", "what to find out (prompted if empty)")
	f.StringVar(&opts.format, "format", "json", "report format: json or text")
	f.StringVar(&opts.configFile, "config", "", "path to a YAML config file")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	if opts.format != "json" && opts.format != "text" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, "research")
	for _, w := range cfg.ResearchWarnings() {
		logger.Warn(w)
	}

	in := bufio.NewReader(cmd.InOrStdin())
	company, err := ask(in, cmd.ErrOrStderr(), opts.company, "Enter the company name: ")
	if err != nil {
		return err
	}
	objective, err := ask(in, cmd.ErrOrStderr(), opts.objective, "Enter what information you want about the company: ")
	if err != nil {
		return err
	}

	prog := newProgress(cmd.ErrOrStderr())
	defer prog.stop()

	research := &pipeline.Research{
		Search: serp.NewSerpAPI(serp.SerpAPIConfig{
			APIKey:  cfg.Search.APIKey,
			BaseURL: cfg.Search.BaseURL,
			Timeout: cfg.Search.Timeout,
			Logger:  logger,
		}),
		Selector: selector.New(
			llm.NewOpenAI(cfg.Selector.APIKey, cfg.Selector.BaseURL, cfg.Selector.Model, nil),
			logger,
		),
		Extractor: extract.New(extract.Config{
			APIKey:       cfg.Extract.APIKey,
			BaseURL:      cfg.Extract.BaseURL,
			Timeout:      cfg.Extract.Timeout,
			PollInterval: cfg.Extract.PollInterval,
			MaxAttempts:  cfg.Extract.MaxAttempts,
			PollTimeout:  cfg.Extract.PollTimeout,
			Logger:       logger,
			OnPoll:       prog.poll,
		}),
		SearchLimit: cfg.Search.Limit,
		Logger:      logger,
		OnStage:     prog.stage,
	}

	sum, runErr := research.Run(ctx, company, objective)
	prog.stop()

	if runErr == nil {
		logger.Info("extraction complete", "urls", len(sum.SelectedURLs), "attempts", sum.Attempts)
	}

	out := cmd.OutOrStdout()
	if opts.format == "text" {
		err = report.WriteText(out, *sum)
	} else {
		err = report.WriteJSON(out, *sum)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return runErr
}

// ask returns preset when set, otherwise prompts on w and reads one line.
func ask(in *bufio.Reader, w io.Writer, preset, prompt string) (string, error) {
	if v := strings.TrimSpace(preset); v != "" {
		return v, nil
	}
	fmt.Fprint(w, prompt)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	v := strings.TrimSpace(line)
	if v == "" {
		return "", errors.New("input must not be empty")
	}
	return v, nil
}

// progress shows a spinner on a terminal while the extraction job runs.
// On anything else it does nothing and the log lines carry the progress.
type progress struct {
	s *spinner.Spinner
}

func newProgress(w io.Writer) *progress {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return &progress{}
	}
	return &progress{s: spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))}
}

func (p *progress) stage(s pipeline.Stage) {
	if p.s == nil {
		return
	}
	if s != pipeline.StageExtract {
		p.s.Stop()
		return
	}
	p.s.Suffix = " waiting for extraction job"
	p.s.Start()
}

func (p *progress) poll(attempt int, state extract.State) {
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" waiting for extraction job (poll %d, %s)", attempt, state)
	p.s.Unlock()
}

func (p *progress) stop() {
	if p.s != nil {
		p.s.Stop()
	}
}
