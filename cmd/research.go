package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/deepsearch/config"
	"github.com/mohammad-safakhou/deepsearch/internal/agent/core"
	"github.com/mohammad-safakhou/deepsearch/internal/agent/telemetry"
)

func researchCMD() *cobra.Command {
	var cfgPath string
	var showSources bool
	var research = &cobra.Command{
		Use:   "research [question]",
		Short: "Run iterative web research for a question",
		Long: `Runs the research loop for a single question: plans search queries,
retrieves and summarizes web pages, and iterates until the evidence is
sufficient or the step budget runs out. Reads the question from the argument
or, when omitted, from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" {
				fmt.Fprint(os.Stderr, "question: ")
				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() {
					return fmt.Errorf("no question provided")
				}
				question = scanner.Text()
			}
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("no question provided")
			}

			tel := telemetry.NewTelemetry(cfg.Telemetry)
			if cfg.Telemetry.Enabled {
				go tel.StartMetricsServer()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, err := core.NewOrchestrator(ctx, cfg, tel, consoleSink{})
			if err != nil {
				return err
			}

			result, err := orch.RunResearch(ctx, []core.Message{
				{Role: core.RoleUser, Content: question},
			})
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(result.Answer)
			if result.Final {
				fmt.Fprintln(os.Stderr, "\n(step budget exhausted; answer is best-effort)")
			}
			if showSources {
				printSources(result)
			}
			fmt.Fprintf(os.Stderr, "\nsteps=%d searches=%d elapsed=%s cost=$%.4f\n",
				result.Steps, len(result.Records), result.Elapsed.Round(10*time.Millisecond), tel.TotalCost())
			return nil
		},
	}
	research.Flags().BoolVar(&showSources, "sources", false, "print consulted sources after the answer")
	research.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return research
}

func printSources(result core.ResearchResult) {
	seen := make(map[string]struct{})
	fmt.Fprintln(os.Stderr, "\nSources:")
	for _, record := range result.Records {
		for _, item := range record.Results {
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
			fmt.Fprintf(os.Stderr, "  - %s (%s)\n", item.Title, item.URL)
		}
	}
}

// consoleSink streams loop progress to stderr so the answer on stdout stays
// clean for piping.
type consoleSink struct{}

func (consoleSink) Emit(event core.ProgressEvent) {
	switch event.Kind {
	case core.ProgressPlanning:
		fmt.Fprintf(os.Stderr, "planning: %s\n", strings.Join(event.Queries, " | "))
	case core.ProgressSources:
		fmt.Fprintf(os.Stderr, "retrieved %d sources for %q\n", len(event.SourceRefs), event.Query)
	case core.ProgressDecision:
		if event.Action == nil {
			return
		}
		if event.Action.Type == core.ActionContinue {
			fmt.Fprintf(os.Stderr, "continuing: %s\n", event.Action.Feedback)
		} else {
			fmt.Fprintf(os.Stderr, "answering: %s\n", event.Action.Reasoning)
		}
	}
}
