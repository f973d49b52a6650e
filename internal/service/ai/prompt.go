package ai

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/coauthor/backend/internal/model/story"
)

// systemDirective is the fixed contract sent with every generation request.
// The narrative text and choice list are mandatory; the model is told to
// follow edited history without being re-prompted about it.
const systemDirective = `You are a collaborative novelist.

STRICT RULES:
1. Adapt exactly to the user's defined "Vibe", "Setting", and "Protagonist".
2. INCORPORATE the provided "MEMORY" items into the narrative logic if relevant.
3. If the user edits a previous message or asks for a change, adapt the story flow immediately to match the new context.
4. Respond with JSON only: an object with a 'story_segment' string and a 'choices' array of 3 to 4 short, distinct plot options.
5. Keep segments engaging (approx 150-250 words).`

// CompilePrompt maps the current story state to the ordered turn sequence for
// the generation service. It is a pure function: the instruction turn is
// re-derived from the setup and active memories on every call, so editing the
// setup or toggling a memory affects the next generation without rewriting
// history.
func CompilePrompt(setup story.Setup, history []story.Message, activeMemories []story.Memory, freeInput string) []*schema.Message {
	turns := make([]*schema.Message, 0, len(history)+2)
	turns = append(turns, schema.UserMessage(buildInstructionTurn(setup, activeMemories)))

	for _, msg := range history {
		switch msg.Role {
		case story.RoleModel:
			turns = append(turns, schema.AssistantMessage(msg.Text, nil))
		default:
			turns = append(turns, schema.UserMessage(msg.Text))
		}
	}

	if freeInput != "" {
		turns = append(turns, schema.UserMessage(freeInput))
	}

	return turns
}

func buildInstructionTurn(setup story.Setup, activeMemories []story.Memory) string {
	var b strings.Builder
	b.WriteString("Story Configuration:\n")
	fmt.Fprintf(&b, "- Setting: %s\n", setup.Setting)
	fmt.Fprintf(&b, "- Vibe/Tone: %s\n", setup.Vibe)
	fmt.Fprintf(&b, "- Protagonist: %s\n", setup.Protagonist)

	if len(activeMemories) > 0 {
		b.WriteString("\nIMPORTANT MEMORY (Always remember these details):\n")
		for _, m := range activeMemories {
			fmt.Fprintf(&b, "- %s\n", m.Text)
		}
	}

	b.WriteString("\nInstruction: Write the next segment of the story based on the history below.\n")
	b.WriteString("If this is the beginning, write the opening scene.")
	return b.String()
}
