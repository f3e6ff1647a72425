package main

import (
	"fmt"
	"os"

	"github.com/ashutoshrp06/reasonchain/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "reasonchain.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit configuration",
	Long:  "View the effective configuration or create a default config file.",
	Run:   runConfig,
}

var (
	configInit bool
	configShow bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", true, "Show current configuration")
}

func runConfig(cmd *cobra.Command, args []string) {
	if configInit {
		initConfig()
		return
	}

	if configShow {
		showConfig()
	}
}

func initConfig() {
	if _, err := os.Stat(defaultConfigFile); err == nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(defaultConfigFile + " already exists. Use --show to view it."))
		return
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(defaultConfigFile); err != nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
			Render(fmt.Sprintf("Failed to create config: %v", err)))
		os.Exit(1)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).
		Render("Created " + defaultConfigFile + " with default settings."))
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - The backend and its model")
	fmt.Println("  - Step ceiling and request timeout")
	fmt.Println("  - Web search provider and code sandbox")
	fmt.Println("\nAPI keys are best kept in the environment or a .env file.")
}

func showConfig() {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(fmt.Sprintf("Could not load config (%v). Showing defaults:\n", err)))
	} else {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true).
			Render("Current Configuration:\n"))
	}
	applyFlags(cfg)

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(string(data))

	if err := cfg.Validate(); err != nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
			Render(fmt.Sprintf("Configuration problems:\n%v", err)))
	}

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).
		Render("\nConfig file locations (in order of precedence):"))
	for i, p := range config.SearchPaths() {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
}
