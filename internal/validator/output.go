package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashutoshrp06/reasonchain/internal/types"
)

var (
	fenceRegexp       = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	finalMarkerRegexp = regexp.MustCompile(`(?i)"next_action"\s*:\s*"final_answer"`)
)

// ParseStep decodes a structured step from raw model output. A single
// surrounding markdown code fence is tolerated.
func ParseStep(raw string) (types.StepRecord, error) {
	text := strings.TrimSpace(raw)
	if m := fenceRegexp.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	if !strings.HasPrefix(text, "{") {
		return types.StepRecord{}, errors.New("response is not a JSON object")
	}

	var step types.StepRecord
	if err := json.Unmarshal([]byte(text), &step); err != nil {
		return types.StepRecord{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if step.Title == "" && step.Content == "" {
		return types.StepRecord{}, errors.New("missing title and content fields")
	}

	step.NextAction = normalizeAction(step.NextAction)
	return step, nil
}

// RawResponse wraps unparseable output as a step. It is promoted to a final
// answer when the text itself carries the final-answer marker, or when the
// caller is already asking for the final answer.
func RawResponse(raw string, isFinal bool) types.StepRecord {
	action := types.ActionContinue
	if isFinal || HasFinalMarker(raw) {
		action = types.ActionFinalAnswer
	}
	return types.StepRecord{
		Title:      types.TitleRawResponse,
		Content:    raw,
		NextAction: action,
	}
}

// HasFinalMarker reports whether text contains "next_action": "final_answer"
// in any letter case.
func HasFinalMarker(text string) bool {
	return finalMarkerRegexp.MatchString(text)
}

func normalizeAction(action string) string {
	if strings.ToLower(strings.TrimSpace(action)) == types.ActionFinalAnswer {
		return types.ActionFinalAnswer
	}
	return types.ActionContinue
}
