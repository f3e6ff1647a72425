package backend

import (
	"reflect"
	"testing"

	"github.com/ashutoshrp06/reasonchain/internal/types"
)

func msg(role, content string) types.Message {
	return types.Message{Role: role, Content: content}
}

func TestStripAssistantTurns(t *testing.T) {
	in := []types.Message{
		msg(types.RoleSystem, "sys"),
		msg(types.RoleUser, "q"),
		msg(types.RoleAssistant, "ack"),
		msg(types.RoleAssistant, `{"title":"s1"}`),
	}

	got := StripAssistantTurns(in, false)
	want := []types.Message{msg(types.RoleSystem, "sys"), msg(types.RoleUser, "q")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StripAssistantTurns() = %v, want %v", got, want)
	}

	if got := StripAssistantTurns(in, true); len(got) != len(in) {
		t.Errorf("final call must keep assistant turns, got %v", got)
	}
}

func TestAlternateRoles(t *testing.T) {
	tests := []struct {
		name string
		in   []types.Message
		want []types.Message
	}{
		{
			name: "merges consecutive users",
			in: []types.Message{
				msg(types.RoleSystem, "sys"),
				msg(types.RoleUser, "q"),
				msg(types.RoleUser, "more"),
			},
			want: []types.Message{
				msg(types.RoleSystem, "sys"),
				msg(types.RoleUser, "q\n\nmore"),
			},
		},
		{
			name: "later system becomes user",
			in: []types.Message{
				msg(types.RoleSystem, "sys"),
				msg(types.RoleUser, "q"),
				msg(types.RoleAssistant, "a"),
				msg(types.RoleSystem, "Tool result: 4"),
				msg(types.RoleUser, "final?"),
			},
			want: []types.Message{
				msg(types.RoleSystem, "sys"),
				msg(types.RoleUser, "q"),
				msg(types.RoleAssistant, "a"),
				msg(types.RoleUser, "Tool result: 4\n\nfinal?"),
			},
		},
		{
			name: "leading system messages merge",
			in: []types.Message{
				msg(types.RoleSystem, "a"),
				msg(types.RoleSystem, "b"),
				msg(types.RoleTool, "c"),
			},
			want: []types.Message{
				msg(types.RoleSystem, "a\n\nb"),
				msg(types.RoleUser, "c"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlternateRoles(tt.in, false)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AlternateRoles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlternateRoles_DoesNotMutateInput(t *testing.T) {
	in := []types.Message{msg(types.RoleUser, "a"), msg(types.RoleUser, "b")}
	AlternateRoles(in, false)
	if in[0].Content != "a" {
		t.Errorf("input mutated: %v", in)
	}
}
