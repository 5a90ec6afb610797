package main

import (
	"github.com/gdamore/tcell/v2"

	"craftkit.ai/internal/mctext"
	"craftkit.ai/internal/mctext/obfuscate"
	"craftkit.ai/internal/menu"
	"craftkit.ai/internal/render/term"
)

const helpLine = "q/esc quit"

// view is either free text or a menu preview with a selection.
type view struct {
	text     string
	menu     *menu.Config
	selected int
}

func (v *view) runs() []mctext.Run {
	if v.menu != nil {
		return mctext.Tokenize(menu.PreviewText(*v.menu, v.selected))
	}
	return mctext.Tokenize(v.text)
}

func (v *view) animated() bool { return obfuscate.HasObfuscated(v.runs()) }

// handleKey reports false when the view should close.
func (v *view) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRight, tcell.KeyDown:
		v.step(1)
	case tcell.KeyLeft, tcell.KeyUp:
		v.step(-1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			v.step(1)
		}
	}
	return true
}

func (v *view) step(d int) {
	if v.menu == nil || len(v.menu.Items) == 0 {
		return
	}
	if d > 0 {
		v.selected = menu.Next(*v.menu, v.selected)
		return
	}
	v.selected--
	if v.selected < 1 {
		v.selected = len(v.menu.Items)
	}
}

func (v *view) draw(screen tcell.Screen, anim *obfuscate.Animator) {
	screen.Clear()
	runs := anim.Render(v.runs())
	_, row := term.DrawRuns(screen, 1, 1, runs)

	help := helpLine
	if v.menu != nil {
		help = "space/arrows select  " + helpLine
	}
	gray, _ := mctext.ColorFor('7')
	term.DrawRuns(screen, 1, row+2, []mctext.Run{{Text: help, Style: mctext.Style{Color: gray, Italic: true}}})
	screen.Show()
}
