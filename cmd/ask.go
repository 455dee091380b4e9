package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/shipsight/internal/ai"
	"github.com/KaramelBytes/shipsight/internal/analysis"
	"github.com/KaramelBytes/shipsight/internal/chat"
	"github.com/KaramelBytes/shipsight/internal/utils"
	"github.com/spf13/cobra"
)

var (
	askProduct     string
	askRegion      string
	askStart       string
	askEnd         string
	askStream      bool
	askJSON        bool
	askQuiet       bool
	askDryRun      bool
	askPrintPrompt bool
	askBudgetLimit float64
	askOutputPath  string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant about the filtered data",
	Args:  cobra.MinimumNArgs(1),
	Example: `  shipsight ask "Which region has the most late deliveries?"
  shipsight ask --region Southwest --stream "Why is sentiment low here?"
  shipsight ask --dry-run "Summarize the top problems"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return chat.ErrEmptyQuestion
		}
		if askJSON {
			askQuiet = true
		}
		f, err := analysis.ParseFilters(askProduct, askRegion, askStart, askEnd)
		if err != nil {
			return err
		}
		svc, logger, err := newService()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		defer svc.Close()

		ctx := commandContext(cmd)
		out := cmd.OutOrStdout()
		sessions := chat.NewStore(0, logger)
		defer sessions.Close()
		sess, err := cliSession(ctx, svc, sessions)
		if err != nil {
			return err
		}
		snap, err := svc.Snapshot(ctx, sess, f)
		if err != nil {
			return err
		}

		model := svc.Model()
		budget := ai.PromptBudget(model, cfg.ContextTokenLimit, cfg.MaxTokens)
		prompt := chat.BuildContext(snap, question, budget)
		tokens := utils.CountTokens(prompt)
		if !askQuiet {
			fmt.Fprintf(out, "Filters: %s (%d reviews)\n", snap.Filters.Describe(), snap.Overview.TotalReviews)
			fmt.Fprintf(out, "Tokens: prompt≈%d, budget %d\n", tokens, budget)
			if mi, ok := ai.LookupModel(model); ok && tokens+cfg.MaxTokens > mi.ContextTokens {
				fmt.Fprintf(out, "⚠ Prompt (%d tokens) + max-tokens (%d) exceeds %s context window (~%d tokens).\n",
					tokens, cfg.MaxTokens, mi.Name, mi.ContextTokens)
			}
		}
		if cost, ok := ai.EstimateCostUSD(model, tokens, cfg.MaxTokens); ok {
			if !askQuiet && cost > 0 {
				fmt.Fprintf(out, "Estimated max cost: ~$%.4f\n", cost)
			}
			if err := enforceBudget(cost, askBudgetLimit); err != nil {
				return err
			}
		}
		if askDryRun || askPrintPrompt {
			if !askQuiet {
				fmt.Fprintln(out, "\n-- prompt --")
			}
			fmt.Fprintln(out, prompt)
			if askDryRun {
				return nil
			}
		}

		if !askQuiet {
			fmt.Fprintf(out, "⚙ Asking %s/%s ...\n", cfg.AIProvider, model)
		}
		sess.SetOpen(true)
		assistant := svc.Assistant(ctx, sess)
		streamed := askStream && !askJSON
		var msg chat.Message
		if streamed {
			if !askQuiet {
				fmt.Fprintln(out, "\n=== Assistant ===")
			}
			msg, err = assistant.AskStream(ctx, sess, snap, question, func(d string) {
				_, _ = io.WriteString(out, d)
			})
			if err == nil {
				fmt.Fprintln(out)
			}
		} else {
			msg, err = assistant.Ask(ctx, sess, snap, question)
		}
		if err != nil {
			return err
		}
		if err := writeAnswer(out, msg, answerOptions{
			JSON:         askJSON,
			Quiet:        askQuiet,
			Printed:      streamed,
			Question:     question,
			Model:        model,
			Filters:      snap.Filters,
			PromptTokens: tokens,
			OutputPath:   askOutputPath,
		}); err != nil {
			return err
		}
		if strings.HasPrefix(msg.Content, "❌") {
			return fmt.Errorf("the assistant could not answer")
		}
		return nil
	},
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

type answerOptions struct {
	JSON         bool
	Quiet        bool
	Printed      bool
	Question     string
	Model        string
	Filters      analysis.Filters
	PromptTokens int
	OutputPath   string
}

type answerJSON struct {
	Question     string           `json:"question"`
	Model        string           `json:"model"`
	Filters      analysis.Filters `json:"filters"`
	PromptTokens int              `json:"prompt_tokens"`
	Answer       string           `json:"answer"`
	CreatedAt    string           `json:"created_at"`
}

// writeAnswer prints the assistant turn unless it was already streamed, and
// optionally saves it.
func writeAnswer(w io.Writer, msg chat.Message, opts answerOptions) error {
	var saved []byte
	if opts.JSON {
		b, err := utils.PrettyJSON(answerJSON{
			Question:     opts.Question,
			Model:        opts.Model,
			Filters:      opts.Filters,
			PromptTokens: opts.PromptTokens,
			Answer:       msg.Content,
			CreatedAt:    msg.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Fprintln(w, string(b))
		saved = b
	} else {
		if !opts.Printed {
			if !opts.Quiet {
				fmt.Fprintln(w, "\n=== Assistant ===")
			}
			fmt.Fprintln(w, msg.Content)
		}
		saved = []byte(msg.Content)
	}
	if opts.OutputPath == "" {
		return nil
	}
	if err := utils.SafeWriteFile(opts.OutputPath, saved, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !opts.Quiet {
		fmt.Fprintf(w, "\n💾 Saved answer to %s\n", opts.OutputPath)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askProduct, "product", analysis.All, "product filter")
	askCmd.Flags().StringVar(&askRegion, "region", analysis.All, "region filter")
	askCmd.Flags().StringVar(&askStart, "start", "", "first day of the date range (YYYY-MM-DD, needs --end)")
	askCmd.Flags().StringVar(&askEnd, "end", "", "last day of the date range (YYYY-MM-DD, needs --start)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as the provider produces it")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "emit JSON (implies --quiet)")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "print only the answer")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompt without calling the AI provider")
	askCmd.Flags().BoolVar(&askPrintPrompt, "print-prompt", false, "print the prompt before sending it")
	askCmd.Flags().Float64Var(&askBudgetLimit, "budget-limit", 0, "refuse to send when the estimated cost (USD) exceeds this")
	askCmd.Flags().StringVarP(&askOutputPath, "output", "o", "", "optional path to save the answer")
}
