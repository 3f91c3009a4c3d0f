package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ppiankov/tabsort/internal/collector"
	"github.com/ppiankov/tabsort/internal/fetch"
	"github.com/ppiankov/tabsort/internal/model"
	"github.com/spf13/cobra"
)

var (
	collectTitle    string
	collectURL      string
	collectContent  string
	collectCategory string
	collectFetch    bool

	exportOut string
	clearYes  bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Record a labeled tab in the dataset",
	Long: `Collect appends one observation to the dataset.

Without --category the label is inferred from the URL and keyword rules.
With --fetch, missing title and content are captured from the live page.

Example:
  tabsort collect --title "Team meeting notes" --url https://docs.google.com/x
  tabsort collect --url https://go.dev/tour --fetch --category learning`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollector(func(c *collector.Collector) error {
			return printJSON(os.Stdout, c.Statistics())
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export training data as JSON lines ({text, label})",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollector(func(c *collector.Collector) error {
			var out io.Writer = os.Stdout
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			enc := json.NewEncoder(out)
			enc.SetEscapeHTML(false)
			examples := c.TrainingData()
			for _, ex := range examples {
				if err := enc.Encode(ex); err != nil {
					return fmt.Errorf("write example: %w", err)
				}
			}
			if exportOut != "" {
				fmt.Fprintf(os.Stderr, "✓ Exported %d examples to %s\n", len(examples), exportOut)
			}
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded observations with their index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollector(func(c *collector.Collector) error {
			for i, o := range c.Observations() {
				fmt.Printf("%4d  %-13s  %s  %s\n", i, o.Category, o.Timestamp, o.Title)
			}
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove the observation at index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index must be an integer: %s", args[0])
		}
		return withCollector(func(c *collector.Collector) error {
			ok, err := c.Remove(index)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no observation at index %d", index)
			}
			fmt.Printf("✓ Removed observation %d\n", index)
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <index>",
	Short: "Change fields of the observation at index",
	Long: `Update overwrites the given fields; fields without a flag are kept.

Example:
  tabsort update 3 --category learning
  tabsort update 0 --title "Sprint planning" --content ""`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every observation in the dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to clear the dataset without --yes")
		}
		return withCollector(func(c *collector.Collector) error {
			n := c.Len()
			if err := c.Clear(); err != nil {
				return err
			}
			fmt.Printf("✓ Cleared %d observations\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(collectCmd, statsCmd, exportCmd, listCmd, removeCmd, updateCmd, clearCmd)

	collectCmd.Flags().StringVar(&collectTitle, "title", "", "tab title")
	collectCmd.Flags().StringVar(&collectURL, "url", "", "tab URL (required)")
	collectCmd.Flags().StringVar(&collectContent, "content", "", "page text (first 1000 characters kept)")
	collectCmd.Flags().StringVar(&collectCategory, "category", "", "label (default: inferred)")
	collectCmd.Flags().BoolVar(&collectFetch, "fetch", false, "fetch the page to fill missing title and content")

	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().String("url", "", "new URL")
	updateCmd.Flags().String("content", "", "new content")
	updateCmd.Flags().String("category", "", "new category")

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default: stdout)")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm clearing the dataset")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	title, content := collectTitle, collectContent
	if collectFetch && collectURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.Timeout+30*time.Second)
		defer cancel()

		if verbose {
			fmt.Fprintf(os.Stderr, "Fetching %s\n", collectURL)
		}
		page, err := fetch.NewFetcher(cfg.Fetch).FetchPage(ctx, collectURL)
		if err != nil {
			return fmt.Errorf("fetch page: %w", err)
		}
		if title == "" {
			title = page.Title
		}
		if content == "" {
			content = page.Content
		}
	}

	return withCollector(func(c *collector.Collector) error {
		obs, err := c.Add(title, collectURL, content, model.Category(collectCategory))
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, obs)
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be an integer: %s", args[0])
	}

	var update model.ObservationUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		update.Title = &v
	}
	if flags.Changed("url") {
		v, _ := flags.GetString("url")
		update.URL = &v
	}
	if flags.Changed("content") {
		v, _ := flags.GetString("content")
		update.Content = &v
	}
	if flags.Changed("category") {
		v, _ := flags.GetString("category")
		category := model.Category(v)
		update.Category = &category
	}
	if update.Empty() {
		return errors.New("nothing to update (use --title, --url, --content or --category)")
	}

	return withCollector(func(c *collector.Collector) error {
		ok, err := c.Update(index, update)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no observation at index %d", index)
		}
		fmt.Printf("✓ Updated observation %d\n", index)
		return nil
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
