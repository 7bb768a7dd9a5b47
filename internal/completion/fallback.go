package completion

import (
	"strings"

	"github.com/michaelbrown/coderoom/internal/protocol"
)

// Fallback returns a deterministic local suggestion set for the text before
// the cursor. Used when the provider is unavailable, times out, or returns
// nothing, so the editor always gets an answer instead of a fault.
func Fallback(code string, cursor protocol.Cursor) []string {
	lines := strings.Split(code, "\n")
	var current string
	if cursor.Line >= 0 && cursor.Line < len(lines) {
		current = lines[cursor.Line]
	}
	col := cursor.Column
	if col < 0 {
		col = 0
	}
	if col > len(current) {
		col = len(current)
	}
	before := strings.TrimSpace(current[:col])

	switch {
	case strings.HasSuffix(before, "console."):
		return []string{"log()", "error()", "warn()"}
	case strings.HasSuffix(before, "function"):
		return []string{"function name() {\n}"}
	case strings.HasSuffix(before, "const"):
		return []string{"const variable = value;"}
	case strings.HasSuffix(before, "let"):
		return []string{"let variable = value;"}
	case strings.HasSuffix(before, "if"):
		return []string{"if (condition) {\n}"}
	case strings.HasSuffix(before, "for"):
		return []string{"for (let i = 0; i < n; i++) {\n}"}
	case strings.HasSuffix(before, "while"):
		return []string{"while (condition) {\n}"}
	case strings.HasSuffix(before, "def"):
		return []string{"def function_name():\n    pass"}
	case strings.HasSuffix(before, "class"):
		return []string{"class ClassName:\n    def __init__(self):\n        pass"}
	case strings.HasSuffix(before, "print"):
		return []string{`print("")`, "print(variable)"}
	case len(before) >= 2:
		return []string{"variable = value", "function_name()"}
	default:
		return nil
	}
}
