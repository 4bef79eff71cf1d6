package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/incrlint/internal/buildinfo"
	"github.com/thiagokokada/incrlint/internal/config"
	"github.com/thiagokokada/incrlint/internal/git"
	"github.com/thiagokokada/incrlint/internal/hub"
	"github.com/thiagokokada/incrlint/internal/incremental"
	"github.com/thiagokokada/incrlint/internal/report"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout)
}

type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "incrlint",
		Short: "Report only the static-analysis violations introduced since the last analysis",
		Long: `incrlint reads the violations found by a static analyser and prints the
ones that are new compared to the last analysis stored on the analysis hub,
following code that moved between the two revisions.`,
		Version:       buildinfo.VersionWithTags(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	config.InitFlags(root)
	root.AddCommand(a.reportCmd(), a.branchCmd())
	return root
}

func (a *app) reportCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "report [violations-file]",
		Short: "Print the new violations of an analysis",
		Long: `Print the new violations of an analysis. Violations are read from
violations-file, or from standard input when it is omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 && args[0] != "-" {
				input = args[0]
			}
			if !a.cfg.Watch {
				return a.report(cmd.Context(), input, full)
			}
			if input == "" {
				return errors.New("--watch needs a violations file, standard input can only be read once")
			}
			svc, err := a.openRepository()
			if err != nil {
				return err
			}
			return watch(cmd.Context(), svc.RepoPath(), []string{input}, func(ctx context.Context) error {
				return a.report(ctx, input, full)
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "report every violation, without asking the hub")
	return cmd
}

func (a *app) branchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch",
		Short: "Print the remote branch the checkout is compared against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openRepository()
			if err != nil {
				return err
			}
			res, err := svc.ClosestRemoteBranch()
			if err != nil {
				return err
			}
			hash := "-"
			if res.Commit != nil {
				hash = res.Commit.Hash
			}
			_, err = fmt.Fprintf(a.stdout, "%s/%s %s\n", svc.Remote(), res.Name, hash)
			return err
		},
	}
}

func (a *app) openRepository() (*git.Service, error) {
	return git.Open(a.cfg.WorkingDir,
		git.WithRemote(a.cfg.Remote),
		git.WithDefaultBranch(a.cfg.DefaultBranch),
	)
}

func (a *app) readViolations(input string) ([]report.Violation, error) {
	if input == "" {
		return report.Decode(a.stdin, a.cfg.InputFormat)
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.Decode(f, a.cfg.InputFormat)
}

func (a *app) report(ctx context.Context, input string, full bool) error {
	vs, err := a.readViolations(input)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(a.cfg.WorkingDir)
	if err != nil {
		return err
	}
	renderer, err := report.NewRenderer(a.cfg.Format, report.Options{
		Root:      root,
		Highlight: a.cfg.Highlight,
		Style:     a.cfg.Style,
	})
	if err != nil {
		return err
	}

	summary := report.Summary{Files: len(report.GroupByFile(vs)), Total: len(vs)}
	reported := vs
	if !full && len(vs) > 0 {
		fresh, err := a.newViolations(ctx, vs)
		switch {
		case err == nil:
			reported = fresh
			summary.Incremental = true
		case errors.Is(err, context.Canceled):
			return err
		default:
			slog.Warn("incremental report unavailable, reporting every violation", slog.Any("error", err))
		}
	}
	summary.Reported = len(reported)
	return renderer.Render(a.stdout, reported, summary)
}

func (a *app) newViolations(ctx context.Context, vs []report.Violation) ([]report.Violation, error) {
	svc, err := a.openRepository()
	if err != nil {
		return nil, err
	}
	client := hub.NewClient(a.cfg.Host, &http.Client{Timeout: a.cfg.Timeout})
	filter := incremental.New(svc, client, a.cfg.WorkingDir)
	session, err := filter.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	return filter.FilterAll(ctx, session, vs)
}
