package agent

import "strings"

const reasoningInstructions = `You are an expert AI assistant that explains your reasoning step by step. For each step, provide a title that describes what you're doing in that step, along with the content. Decide if you need another step or if you're ready to give the final answer. Respond in JSON format with 'title', 'content', and 'next_action' (either 'continue' or 'final_answer') keys.`

const skepticismDirective = `USE AS MANY REASONING STEPS AS POSSIBLE. AT LEAST 3. BE AWARE OF YOUR LIMITATIONS AS AN LLM AND WHAT YOU CAN AND CANNOT DO. IN YOUR REASONING, INCLUDE EXPLORATION OF ALTERNATIVE ANSWERS. CONSIDER YOU MAY BE WRONG, AND IF YOU ARE WRONG IN YOUR REASONING, WHERE IT WOULD BE. FULLY TEST ALL OTHER POSSIBILITIES. YOU CAN BE WRONG. WHEN YOU SAY YOU ARE RE-EXAMINING, ACTUALLY RE-EXAMINE, AND USE ANOTHER APPROACH TO DO SO. DO NOT JUST SAY YOU ARE RE-EXAMINING. USE AT LEAST 3 METHODS TO DERIVE THE ANSWER. USE BEST PRACTICES.`

const toolExample = "Example of a valid JSON response:\n```json\n" + `{
    "title": "Using Wolfram Alpha to Calculate",
    "content": "I'll use Wolfram Alpha to compute the integral of sin(x).",
    "tool": "wolfram_alpha",
    "tool_input": "integrate sin(x)",
    "next_action": "continue"
}` + "```"

// Acknowledgment is the assistant turn that closes the seed.
const Acknowledgment = "Thank you! I will now think step by step following my instructions, starting at the beginning after decomposing the problem."

const (
	finalRequestPlain = "Please provide the final answer based on your reasoning above."

	finalRequestTools = "Please provide the final answer based solely on your reasoning above. Do not use JSON formatting. Only provide the text response without any titles or preambles. Retain any formatting as instructed by the original prompt, such as exact formatting for free response or multiple choice. If you are providing a number, provide a formatted version after the raw one."
)

// SystemPrompt builds the seed instruction. toolsSection is the registry's
// catalogue and is empty for plain reasoning.
func SystemPrompt(toolsSection string) string {
	if toolsSection == "" {
		return reasoningInstructions + " " + skepticismDirective
	}

	var b strings.Builder
	b.WriteString(reasoningInstructions)
	b.WriteString("\n\n")
	b.WriteString(toolsSection)
	b.WriteString("\n\n")
	b.WriteString("When using 'web_search', the tool result will include IDs for each result, which you can use with 'fetch_page_content'.\n\n")
	b.WriteString(skepticismDirective)
	b.WriteString("\n\n")
	b.WriteString(toolExample)
	return b.String()
}

// WithFileContext appends the text of an attached file to the prompt.
func WithFileContext(prompt, fileContent string) string {
	if strings.TrimSpace(fileContent) == "" {
		return prompt
	}
	return prompt + "\n\nFile content:\n" + fileContent
}
