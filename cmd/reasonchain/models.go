package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/backend"
	"github.com/ashutoshrp06/reasonchain/internal/ollama"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the Ollama server",
	Run: func(cmd *cobra.Command, args []string) {
		runModels()
	},
}

func runModels() {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

	cfg := mustLoadConfig()
	if cfg.Backend != backend.Ollama {
		fmt.Println(descStyle.Render(fmt.Sprintf("Model listing is only available for the ollama backend (current: %s, model %s).",
			cfg.Backend, cfg.Endpoint().Model)))
		return
	}

	client := ollama.NewClient(ollama.Config{BaseURL: cfg.Ollama.URL, Model: cfg.Ollama.Model})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		printError("Failed to list models", err)
		printConnectionHelp(cfg)
		return
	}

	fmt.Println(headerStyle.Render("Models at " + client.BaseURL()))
	fmt.Println()
	for _, name := range models {
		if name == client.Model() {
			fmt.Printf("  %s %s\n", activeStyle.Render(name), descStyle.Render("(configured)"))
			continue
		}
		fmt.Printf("  %s\n", name)
	}
	if len(models) == 0 {
		fmt.Println(descStyle.Render("  No models pulled yet. Try: ollama pull " + client.Model()))
	}
}
