package export

import (
	"fmt"
	"strings"

	"github.com/coauthor/backend/internal/model/story"
)

const separator = "--------------------------------"

// RenderText produces the plain-text rendering of a story: header lines,
// separator, then each message under its speaker label. This exact format is
// the export contract; rich document formats degrade to the same rendering.
func RenderText(st story.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", st.Title)
	fmt.Fprintf(&b, "Setting: %s\n", st.Setup.Setting)
	fmt.Fprintf(&b, "Vibe: %s\n", st.Setup.Vibe)
	fmt.Fprintf(&b, "Protagonist: %s\n\n", st.Setup.Protagonist)
	b.WriteString(separator + "\n\n")

	for _, msg := range st.Messages {
		speaker := "You"
		if msg.Role == story.RoleModel {
			speaker = "CoAuthor"
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", speaker, msg.Text)
	}

	return b.String()
}

// Filename slugs the story title for the downloaded file: non-alphanumerics
// become underscores, the rest is lowercased.
func Filename(st story.Story) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, st.Title)
	return slug + ".txt"
}
