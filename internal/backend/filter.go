package backend

import (
	"strings"

	"github.com/ashutoshrp06/reasonchain/internal/types"
)

// TranscriptFilter reshapes a copy of the transcript right before it is sent.
type TranscriptFilter func(msgs []types.Message, isFinal bool) []types.Message

// Filtered is implemented by providers that need their own transcript shape.
type Filtered interface {
	TranscriptFilter() TranscriptFilter
}

// Chain applies filters in order.
func Chain(filters ...TranscriptFilter) TranscriptFilter {
	return func(msgs []types.Message, isFinal bool) []types.Message {
		for _, f := range filters {
			if f != nil {
				msgs = f(msgs, isFinal)
			}
		}
		return msgs
	}
}

// StripAssistantTurns drops prior assistant messages unless the final answer
// is being requested.
func StripAssistantTurns(msgs []types.Message, isFinal bool) []types.Message {
	if isFinal {
		return msgs
	}
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == types.RoleAssistant {
			continue
		}
		out = append(out, m)
	}
	return out
}

// AlternateRoles enforces strict user/assistant alternation after a single
// leading system message. Later system and tool messages become user turns,
// and neighbours with the same role are merged.
func AlternateRoles(msgs []types.Message, _ bool) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	leading := true
	for _, m := range msgs {
		role := m.Role
		if role == types.RoleSystem && !leading {
			role = types.RoleUser
		}
		if role == types.RoleTool {
			role = types.RoleUser
		}
		if role != types.RoleSystem {
			leading = false
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = strings.TrimSpace(out[n-1].Content + "\n\n" + m.Content)
			continue
		}
		out = append(out, types.Message{Role: role, Content: m.Content})
	}
	return out
}
