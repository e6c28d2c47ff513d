package tui

import (
	"github.com/mattn/go-runewidth"
)

// truncatePath shortens path to width display cells, keeping the tail,
// since the file name is the informative part.
func truncatePath(path string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(path) <= width {
		return path
	}
	if width <= 3 {
		return runewidth.Truncate(path, width, "")
	}

	runes := []rune(path)
	tail := ""
	for i := len(runes) - 1; i >= 0; i-- {
		next := string(runes[i]) + tail
		if runewidth.StringWidth(next) > width-3 {
			break
		}
		tail = next
	}
	return "..." + tail
}
