// Package term draws styled runs onto a tcell screen.
package term

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"craftkit.ai/internal/mctext"
)

// StyleFor maps a run's formatting onto a tcell style.
func StyleFor(s mctext.Style) tcell.Style {
	st := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(s.Color.R), int32(s.Color.G), int32(s.Color.B))).
		Bold(s.Bold).
		Italic(s.Italic).
		Underline(s.Underline).
		StrikeThrough(s.Strikethrough)
	return st
}

// DrawRuns writes runs starting at (x, y). A '\n' in run text moves to the start of the
// next line. Cells past the screen width are clipped. It returns the position after the
// last drawn cell.
func DrawRuns(screen tcell.Screen, x, y int, runs []mctext.Run) (int, int) {
	w, h := screen.Size()
	col, row := x, y
	for _, r := range runs {
		st := StyleFor(r.Style)
		for _, ch := range r.Text {
			if ch == '\n' {
				col, row = x, row+1
				continue
			}
			cw := runewidth.RuneWidth(ch)
			if cw == 0 {
				cw = 1
			}
			if row >= 0 && row < h && col >= 0 && col+cw <= w {
				screen.SetContent(col, row, ch, nil, st)
			}
			col += cw
		}
	}
	return col, row
}

// Lines counts the rows DrawRuns will use.
func Lines(runs []mctext.Run) int {
	n := 1
	for _, r := range runs {
		for _, ch := range r.Text {
			if ch == '\n' {
				n++
			}
		}
	}
	return n
}
