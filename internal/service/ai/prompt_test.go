package ai

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/coauthor/backend/internal/model/story"
)

var testSetup = story.Setup{Setting: "a ship", Vibe: "tense", Protagonist: "a stowaway"}

func TestCompilePromptShape(t *testing.T) {
	history := []story.Message{
		{ID: "1", Role: story.RoleUser, Text: "I open the door"},
		{ID: "2", Role: story.RoleModel, Text: "A draft hits your face"},
	}

	turns := CompilePrompt(testSetup, history, nil, "I step through")

	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Role != schema.User {
		t.Fatalf("instruction turn role = %s, want user", turns[0].Role)
	}
	if turns[1].Role != schema.User || turns[1].Content != "I open the door" {
		t.Fatalf("unexpected history turn: %s %q", turns[1].Role, turns[1].Content)
	}
	if turns[2].Role != schema.Assistant || turns[2].Content != "A draft hits your face" {
		t.Fatalf("unexpected model turn: %s %q", turns[2].Role, turns[2].Content)
	}
	if turns[3].Role != schema.User || turns[3].Content != "I step through" {
		t.Fatalf("unexpected free-input turn: %s %q", turns[3].Role, turns[3].Content)
	}
}

func TestCompilePromptIsPure(t *testing.T) {
	history := []story.Message{{ID: "1", Role: story.RoleUser, Text: "hello"}}
	memories := []story.Memory{{ID: "m", Text: "The ship is sinking", Active: true}}

	first := CompilePrompt(testSetup, history, memories, "go")
	second := CompilePrompt(testSetup, history, memories, "go")

	if len(first) != len(second) {
		t.Fatalf("turn counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Role != second[i].Role || first[i].Content != second[i].Content {
			t.Fatalf("turn %d differs between identical calls", i)
		}
	}
}

func TestCompilePromptInstructionTurn(t *testing.T) {
	turns := CompilePrompt(testSetup, nil, nil, "")

	if len(turns) != 1 {
		t.Fatalf("expected only the instruction turn, got %d turns", len(turns))
	}
	content := turns[0].Content
	for _, want := range []string{
		"- Setting: a ship",
		"- Vibe/Tone: tense",
		"- Protagonist: a stowaway",
		"If this is the beginning, write the opening scene.",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("instruction turn missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "IMPORTANT MEMORY") {
		t.Fatal("memory block should be omitted when no memories are active")
	}
}

func TestCompilePromptMemoryBlock(t *testing.T) {
	memories := []story.Memory{{ID: "m1", Text: "The stowaway's name is Kira", Active: true}}

	withMemory := CompilePrompt(testSetup, nil, memories, "")
	if !strings.Contains(withMemory[0].Content, "IMPORTANT MEMORY (Always remember these details):\n- The stowaway's name is Kira") {
		t.Fatalf("memory bullet missing:\n%s", withMemory[0].Content)
	}

	// Toggling the only memory off drops the entire block on the next compile.
	without := CompilePrompt(testSetup, nil, nil, "")
	if strings.Contains(without[0].Content, "IMPORTANT MEMORY") {
		t.Fatal("memory block should disappear once the memory is inactive")
	}
}

func TestCompilePromptMemoryOrder(t *testing.T) {
	memories := []story.Memory{
		{ID: "a", Text: "first fact", Active: true},
		{ID: "c", Text: "second fact", Active: true},
	}

	turns := CompilePrompt(testSetup, nil, memories, "")

	content := turns[0].Content
	if strings.Index(content, "first fact") > strings.Index(content, "second fact") {
		t.Fatal("memory bullets out of insertion order")
	}
}
