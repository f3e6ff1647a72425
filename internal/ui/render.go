package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashutoshrp06/reasonchain/internal/types"
	"github.com/charmbracelet/lipgloss"
)

const maxToolResult = 300

// RenderStep renders one step view. A width of zero disables wrapping.
func (s Styles) RenderStep(v types.StepView, width int) string {
	if v.IsFinal() {
		return s.renderFinal(v, width)
	}

	var b strings.Builder
	b.WriteString(s.StepLabel.Render(v.Label))
	b.WriteString("\n")
	b.WriteString(s.wrap(s.StepContent, width, 4).Render(v.Content))
	b.WriteString("\n")

	if v.Tool != "" {
		b.WriteString(s.renderTool(v))
		b.WriteString("\n")
	}

	b.WriteString(s.ThinkingTime.Render(formatThinking(v.ThinkingTime)))
	return b.String()
}

// RenderTotal renders the total thinking time line.
func (s Styles) RenderTotal(total time.Duration) string {
	return s.TotalTime.Render(fmt.Sprintf("Total thinking time: %.2f seconds", total.Seconds()))
}

func (s Styles) renderFinal(v types.StepView, width int) string {
	var b strings.Builder
	b.WriteString(s.FinalLabel.Render(v.Label))
	b.WriteString("\n")
	b.WriteString(v.Content)
	if v.ThinkingTime > 0 {
		b.WriteString("\n")
		b.WriteString(s.ToolParams.Render(formatThinking(v.ThinkingTime)))
	}
	return s.wrap(s.FinalBox, width, 6).Render(b.String())
}

func (s Styles) renderTool(v types.StepView) string {
	var b strings.Builder

	b.WriteString(s.ToolName.Render("Tool: " + v.Tool))
	if v.ToolInput != nil && !v.ToolInput.IsZero() {
		b.WriteString(" ")
		b.WriteString(s.ToolParams.Render("(" + v.ToolInput.String() + ")"))
	}
	b.WriteString("\n")

	result := ""
	if v.ToolResult != nil {
		result = *v.ToolResult
	}
	result = truncate(result, maxToolResult)

	style := s.ToolOutput
	if strings.HasPrefix(result, "Error:") {
		style = s.ToolError
	}
	for _, line := range strings.Split(result, "\n") {
		if line != "" {
			b.WriteString(style.Render("| " + line))
			b.WriteString("\n")
		}
	}

	return s.ToolBox.Render(strings.TrimRight(b.String(), "\n"))
}

// wrap limits a style to the terminal width minus its indentation.
func (s Styles) wrap(style lipgloss.Style, width, indent int) lipgloss.Style {
	if width <= indent+10 {
		return style
	}
	return style.Width(width - indent)
}

func formatThinking(d time.Duration) string {
	return fmt.Sprintf("Thinking time: %.2f seconds", d.Seconds())
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
