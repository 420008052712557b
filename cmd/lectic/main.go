package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectic-ai/lectic/internal/config"
	"github.com/lectic-ai/lectic/internal/gateway"
	"github.com/lectic-ai/lectic/internal/index"
	"github.com/lectic-ai/lectic/internal/ingest"
	"github.com/lectic-ai/lectic/internal/provider"
	"github.com/lectic-ai/lectic/internal/rag"
)

var rootCmd = &cobra.Command{
	Use:   "lectic",
	Short: "lectic - course materials assistant",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (ingests the docs folder on startup)",
	RunE:  runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about the indexed courses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index course documents from a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List indexed courses",
	RunE:  runCourses,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directories",
	RunE:  runOnboard,
}

var clearFlag bool

func init() {
	ingestCmd.Flags().BoolVar(&clearFlag, "clear", false, "Drop the existing index before loading")
	rootCmd.AddCommand(serveCmd, askCmd, ingestCmd, coursesCmd, onboardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (*index.Store, error) {
	embedder := index.NewEmbedder(cfg.Embedding)
	store, err := index.Open(cfg.Index.DBPath, embedder, cfg.Index.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return store, nil
}

func buildSystem(cfg *config.Config, store *index.Store) (*rag.System, error) {
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("API key not set. Run 'lectic onboard' or set LECTIC_API_KEY / ANTHROPIC_API_KEY")
	}
	p, err := provider.NewAnthropic(provider.AnthropicConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return rag.New(cfg, p, store), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	system, err := buildSystem(cfg, store)
	if err != nil {
		return err
	}

	loader := ingest.NewLoader(store, cfg.Ingest)
	return gateway.New(cfg, system, loader).Run(context.Background())
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	system, err := buildSystem(cfg, store)
	if err != nil {
		return err
	}

	question := args[0]
	for _, arg := range args[1:] {
		question += " " + arg
	}

	sessionID := system.Sessions().Create()
	answer, citations, err := system.Query(context.Background(), question, sessionID)
	if err != nil {
		return fmt.Errorf("query error: %w", err)
	}

	fmt.Println(answer)
	if len(citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range citations {
			if c.URL != "" {
				fmt.Printf("  - %s (%s)\n", c.Title, c.URL)
			} else {
				fmt.Printf("  - %s\n", c.Title)
			}
		}
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := cfg.Ingest.DocsDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no docs folder given. Pass a directory or set ingest.docsDir / LECTIC_DOCS_DIR")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	loader := ingest.NewLoader(store, cfg.Ingest)
	courses, chunks, err := loader.AddCourseFolder(context.Background(), dir, clearFlag)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Printf("Added %d courses (%d chunks)\n", courses, chunks)
	return nil
}

func runCourses(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.CourseCount()
	if err != nil {
		return fmt.Errorf("count courses: %w", err)
	}
	titles, err := store.CourseTitles()
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}

	fmt.Printf("Indexed courses: %d\n", count)
	for _, title := range titles {
		fmt.Printf("  - %s\n", title)
	}
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	dataDir := config.ConfigDir() + "/data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set LECTIC_API_KEY / ANTHROPIC_API_KEY")
	fmt.Println("  3. Run 'lectic ingest ./docs' to index course scripts")
	fmt.Println("  4. Run 'lectic ask \"What is lesson 1 about?\"'")

	return nil
}
