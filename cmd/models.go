package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/shipsight/internal/ai"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog used for budgets and cost estimates",
	Example: `  shipsight models list
  shipsight models list --provider cortex`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known models",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := strings.ToLower(strings.TrimSpace(modelsProvider))
		if p != "" && !isKnownProvider(p) {
			return fmt.Errorf("unknown provider: %s (use one of %s)", modelsProvider, strings.Join(ai.Providers(), ", "))
		}
		list := ai.ModelsFor(p)
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No models found")
			return nil
		}
		t := tablewriter.NewWriter(cmd.OutOrStdout())
		t.SetHeader([]string{"Model", "Provider", "Context", "In $/1K", "Out $/1K", "Default"})
		t.SetBorder(false)
		t.SetAutoWrapText(false)
		for _, m := range list {
			def := ""
			if ai.DefaultModel(m.Provider) == m.Name {
				def = "✓"
			}
			t.Append([]string{
				m.Name,
				m.Provider,
				fmt.Sprintf("%d", m.ContextTokens),
				price(m.InputPerK),
				price(m.OutputPerK),
				def,
			})
		}
		t.Render()
		return nil
	},
}

func price(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsListCmd.Flags().StringVar(&modelsProvider, "provider", "", "only list models of this provider")
}
