package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long: `List the tools the model may call when started with --tools.

Examples:
  reasonchain tools           # List all tools
  reasonchain tools --verbose # Show parameters`,
	Run: func(cmd *cobra.Command, args []string) {
		runTools()
	},
}

func runTools() {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	toolStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF"))

	paramStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	cfg := mustLoadConfig()
	registry, err := newToolRegistry(cfg, zap.NewNop())
	if err != nil {
		printError("Failed to build tools", err)
		return
	}

	fmt.Println(headerStyle.Render("Available Tools"))
	fmt.Println()

	infos := registry.ListTools()
	for _, info := range infos {
		fmt.Printf("  %s\n", toolStyle.Render(info.Name))
		fmt.Printf("    %s\n", descStyle.Render(info.Description))

		if verbose && len(info.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, p := range info.Parameters {
				req := ""
				if p.Required {
					req = " (required)"
				}
				fmt.Printf("      %s%s\n", paramStyle.Render(p.Name), req)
				if p.Description != "" {
					fmt.Printf("        %s\n", descStyle.Render(p.Description))
				}
			}
		}
		fmt.Println()
	}

	fmt.Println(descStyle.Render(fmt.Sprintf("  Total: %d tools available", len(infos))))
	if !cfg.Tools {
		fmt.Println(descStyle.Render("  Tools are off by default; pass --tools to enable them"))
	}
	if !verbose {
		fmt.Println(descStyle.Render("  Use --verbose for parameter details"))
	}
}
