package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/tabsort/internal/collector"
	"github.com/ppiankov/tabsort/internal/labels"
	"github.com/ppiankov/tabsort/internal/model"
	"github.com/ppiankov/tabsort/internal/pipeline"
	"github.com/ppiankov/tabsort/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the release reported by `tabsort version`
const Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tabsort",
	Short: "tabsort - classify browser tabs and collect labeled training data",
	Long: `tabsort sorts browser tabs into five categories: work, learning,
entertainment, social and other.

Text is matched against keyword rules first; only when no rule matches is
the configured model provider asked for a probability per category.

Tabs can also be recorded with a label (given or inferred from URL and
keyword rules) to build a dataset for retraining a classifier later.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of tabsort.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tabsort %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tabsort/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("provider", "", "model provider (hf, openai, anthropic, ollama; empty disables the model)")
	flags.String("model", "", "model name for the provider")
	flags.String("store", "", "dataset path")
	flags.String("backend", "", "dataset backend (file, sqlite)")
	flags.String("rules", "", "category rule file (default: built-in rules)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("model.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model.model", flags.Lookup("model"))
	_ = viper.BindPFlag("store.path", flags.Lookup("store"))
	_ = viper.BindPFlag("store.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("rules.path", flags.Lookup("rules"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.tabsort")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setupViper()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: cannot read config file %s: %v\n", cfgFile, err)
	}
}

// setupViper registers defaults and maps TABSORT_* variables onto config keys
// (TABSORT_MODEL_PROVIDER -> model.provider)
func setupViper() {
	viper.SetEnvPrefix("TABSORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	d := model.DefaultConfig()
	defaults := map[string]any{
		"server.addr":               d.Server.Addr,
		"store.backend":             d.Store.Backend,
		"store.path":                d.Store.Path,
		"model.provider":            d.Model.Provider,
		"model.model":               d.Model.Model,
		"model.api_key":             d.Model.APIKey,
		"model.base_url":            d.Model.BaseURL,
		"model.timeout":             d.Model.Timeout,
		"model.max_tokens":          d.Model.MaxTokens,
		"model.requests_per_second": d.Model.RequestsPerSecond,
		"model.burst":               d.Model.Burst,
		"cache.enabled":             d.Cache.Enabled,
		"cache.memory_ttl":          d.Cache.MemoryTTL,
		"cache.disk_dir":            d.Cache.DiskDir,
		"cache.disk_ttl":            d.Cache.DiskTTL,
		"rules.path":                d.Rules.Path,
		"fetch.timeout":             d.Fetch.Timeout,
		"fetch.user_agent":          d.Fetch.UserAgent,
		"fetch.max_body_bytes":      d.Fetch.MaxBodyBytes,
		"fetch.respect_robots":      d.Fetch.RespectRobots,
		"fetch.http_proxy":          d.Fetch.HTTPProxy,
		"fetch.https_proxy":         d.Fetch.HTTPSProxy,
		"fetch.no_proxy":            d.Fetch.NoProxy,
		"concurrency.workers":       d.Concurrency.Workers,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Provider credentials from their conventional variables
	if cfg.Model.APIKey == "" {
		switch strings.ToLower(cfg.Model.Provider) {
		case "openai":
			cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "hf", "huggingface", "inference-server":
			cfg.Model.APIKey = os.Getenv("HF_API_TOKEN")
		}
	}
	if cfg.Model.BaseURL == "" && strings.ToLower(cfg.Model.Provider) == "ollama" {
		cfg.Model.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	return cfg, nil
}

func loadLabels(cfg *model.Config) (*labels.LabelSet, error) {
	if cfg.Rules.Path == "" {
		return labels.Default(), nil
	}
	return labels.Load(cfg.Rules.Path)
}

// openCollector opens the configured store and loads the dataset.
// The caller closes the returned store.
func openCollector(cfg *model.Config) (*collector.Collector, store.Store, error) {
	ls, err := loadLabels(cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	c, err := collector.New(s, ls)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}

	if c.Recovered() {
		fmt.Fprintf(os.Stderr, "Warning: dataset %s was unreadable; starting from an empty dataset\n", cfg.Store.Path)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d observations from %s (%s)\n", c.Len(), cfg.Store.Path, cfg.Store.Backend)
	}

	return c, s, nil
}

func newPipeline(cfg *model.Config) (*pipeline.Pipeline, error) {
	p, err := pipeline.NewFromConfig(cfg, pipeline.WithLogger(stderrLogger))
	if err != nil {
		return nil, err
	}
	if verbose {
		if cfg.Model.Provider == "" {
			fmt.Fprintf(os.Stderr, "Model: disabled (keyword rules only)\n")
		} else {
			fmt.Fprintf(os.Stderr, "Model: %s/%s\n", cfg.Model.Provider, cfg.Model.Model)
		}
	}
	return p, nil
}

func stderrLogger(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// withCollector runs fn against the configured dataset
func withCollector(fn func(c *collector.Collector) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, s, err := openCollector(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return fn(c)
}
