package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var analyzeTimeout time.Duration

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <text...>",
	Short: "Classify a piece of tab text",
	Long: `Analyze classifies text into work, learning, entertainment, social or other.

Keyword rules are tried first (importance score 0.85). Text that matches no
rule is sent to the configured model provider.

Example:
  tabsort analyze "Quarterly business review"
  tabsort analyze "Some obscure page" --provider openai --model gpt-4o-mini`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	result := p.Analyze(ctx, strings.Join(args, " "))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if !result.OK() {
		return fmt.Errorf("analysis failed: %s", result.Error)
	}
	return nil
}
