package menu

import "strings"

// PreviewText renders the actionbar as the game shows it when the counter is
// selected (1-based). Selected 0 or out of range highlights nothing.
// The result is §-coded text for mctext.Tokenize.
func PreviewText(cfg Config, selected int) string {
	var b strings.Builder
	b.WriteString(cfg.Title)
	b.WriteString("\n§r" + Separator)
	for i, it := range cfg.Items {
		b.WriteString("\n")
		if i+1 == selected {
			b.WriteString("§r")
			b.WriteString(cfg.style())
		} else {
			b.WriteString("§r§f")
		}
		b.WriteString(it.Label)
	}
	b.WriteString("\n§r" + Separator)
	return b.String()
}

// Next advances the selection the way a thrown snowball does. The counter keeps
// counting past the last item in game; the preview wraps to the first.
func Next(cfg Config, selected int) int {
	if len(cfg.Items) == 0 {
		return 0
	}
	return selected%len(cfg.Items) + 1
}
