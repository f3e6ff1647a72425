package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/agent"
	"github.com/ashutoshrp06/reasonchain/internal/backend"
	"github.com/ashutoshrp06/reasonchain/internal/config"
	"github.com/ashutoshrp06/reasonchain/internal/ollama"
	"github.com/ashutoshrp06/reasonchain/internal/ui"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	verbose     bool
	interactive bool
	backendName string
	useTools    bool
	contextFile string
)

var rootCmd = &cobra.Command{
	Use:   "reasonchain [query]",
	Short: "Step-by-step reasoning with any LLM",
	Long: `
██████╗ ███████╗ █████╗ ███████╗ ██████╗ ███╗   ██╗
██╔══██╗██╔════╝██╔══██╗██╔════╝██╔═══██╗████╗  ██║
██████╔╝█████╗  ███████║███████╗██║   ██║██╔██╗ ██║
██╔══██╗██╔══╝  ██╔══██║╚════██║██║   ██║██║╚██╗██║
██║  ██║███████╗██║  ██║███████║╚██████╔╝██║ ╚████║
╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚══════╝ ╚═════╝ ╚═╝  ╚═══╝ chain

  Drives a language model through explicit reasoning steps before it
  commits to a final answer.

Usage:
  reasonchain "How many r's are in strawberry?"
  reasonchain --backend groq --tools "What is 17! / 15!?"
  reasonchain --context-file notes.txt "Summarize the open questions"
  reasonchain --it`,

	Run: func(cmd *cobra.Command, args []string) {
		if interactive {
			runInteractive()
			return
		}
		if len(args) > 0 {
			runOneShot(args)
			return
		}
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&interactive, "it", false, "Start interactive mode")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Backend to use ("+strings.Join(backend.Names, ", ")+")")
	rootCmd.PersistentFlags().BoolVar(&useTools, "tools", false, "Let the model call tools while reasoning")
	rootCmd.Flags().StringVar(&contextFile, "context-file", "", "Attach the contents of a text file to the prompt")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runInteractive() {
	cfg := mustLoadConfig()

	// Log lines would corrupt the alternate screen.
	logger := zap.NewNop()
	if verbose {
		logger = createLogger()
	}

	controller := initController(cfg, logger)
	opts := mustRunOptions()

	start := func(prompt string) (ui.Stepper, error) {
		run, err := controller.Start(prompt, opts...)
		if err != nil {
			return nil, err
		}
		return run, nil
	}

	if err := ui.Run(start, controller.ToolNames()); err != nil {
		printError("Interactive session failed", err)
		os.Exit(1)
	}
}

func runOneShot(args []string) {
	query := strings.Join(args, " ")
	cfg := mustLoadConfig()
	logger := createLogger()
	defer logger.Sync()

	controller := initController(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emissions, err := controller.Generate(ctx, query, mustRunOptions()...)
	if err != nil {
		printError("Invalid query", err)
		os.Exit(1)
	}

	fmt.Println()
	if _, err := ui.RunOneShot(os.Stdout, emissions, ui.TerminalWidth()); err != nil {
		printError("Failed to print steps", err)
		os.Exit(1)
	}
}

// initController checks backend connectivity and returns a ready controller.
func initController(cfg *config.Config, logger *zap.Logger) *agent.Controller {
	controller, err := newController(cfg, logger)
	if err != nil {
		printError("Failed to initialize reasoning controller", err)
		os.Exit(1)
	}

	if cfg.Backend == backend.Ollama {
		fmt.Print(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("Connecting to Ollama... "))
		client := ollama.NewClient(ollama.Config{BaseURL: cfg.Ollama.URL, Model: cfg.Ollama.Model})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := client.Ping(ctx); err != nil {
			cancel()
			fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("✗"))
			fmt.Println()
			printConnectionHelp(cfg)
			os.Exit(1)
		}
		cancel()
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("✓"))
	}

	mode := "plain reasoning"
	if controller.ToolsEnabled() {
		mode = "tool-augmented reasoning"
	}
	fmt.Printf("Using %s (%s), %s\n", cfg.Backend, cfg.Endpoint().Model, mode)

	return controller
}

func mustLoadConfig() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)
	return cfg
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromPaths(config.SearchPaths()...)
}

// applyFlags lets command-line flags override the loaded configuration.
func applyFlags(cfg *config.Config) {
	if backendName != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(backendName))
	}
	if useTools {
		cfg.Tools = true
	}
}

func mustRunOptions() []agent.RunOption {
	opts, err := runOptions(contextFile)
	if err != nil {
		printError("Failed to read context file", err)
		os.Exit(1)
	}
	return opts
}

// runOptions attaches the context file, when given, to every run.
func runOptions(path string) ([]agent.RunOption, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return []agent.RunOption{agent.WithFileContent(string(data))}, nil
}

func createLogger() *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func printError(msg string, err error) {
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
		Render(fmt.Sprintf("Error: %s: %v", msg, err)))
}

func printConnectionHelp(cfg *config.Config) {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	fmt.Println(errStyle.Render("Could not connect to Ollama at " + cfg.Ollama.URL))
	fmt.Println()
	fmt.Println(helpStyle.Render("Make sure Ollama is running:"))
	fmt.Println(cmdStyle.Render("  ollama serve"))
	fmt.Println()
	fmt.Println(helpStyle.Render("Or pick a hosted backend:"))
	fmt.Println(cmdStyle.Render("  PERPLEXITY_API_KEY=... reasonchain --backend perplexity \"...\""))
	fmt.Println(cmdStyle.Render("  GROQ_API_KEY=... reasonchain --backend groq \"...\""))
}
