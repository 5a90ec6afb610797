package mctext

import (
	"fmt"
	"unicode"
)

// Marker introduces a formatting code.
const Marker = '§'

type RGB struct {
	R, G, B uint8
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	White = RGB{0xFF, 0xFF, 0xFF}
	Black = RGB{0x00, 0x00, 0x00}
)

// palette is indexed by the code's hex digit value.
var palette = [16]RGB{
	{0x00, 0x00, 0x00}, // 0 black
	{0x00, 0x00, 0xAA}, // 1 dark blue
	{0x00, 0xAA, 0x00}, // 2 dark green
	{0x00, 0xAA, 0xAA}, // 3 dark aqua
	{0xAA, 0x00, 0x00}, // 4 dark red
	{0xAA, 0x00, 0xAA}, // 5 dark purple
	{0xFF, 0xAA, 0x00}, // 6 gold
	{0xAA, 0xAA, 0xAA}, // 7 gray
	{0x55, 0x55, 0x55}, // 8 dark gray
	{0x55, 0x55, 0xFF}, // 9 blue
	{0x55, 0xFF, 0x55}, // a green
	{0x55, 0xFF, 0xFF}, // b aqua
	{0xFF, 0x55, 0x55}, // c red
	{0xFF, 0x55, 0xFF}, // d light purple
	{0xFF, 0xFF, 0x55}, // e yellow
	{0xFF, 0xFF, 0xFF}, // f white
}

// Style codes.
const (
	CodeObfuscated    = 'k'
	CodeBold          = 'l'
	CodeStrikethrough = 'm'
	CodeUnderline     = 'n'
	CodeItalic        = 'o'
	CodeReset         = 'r'
)

// ColorFor returns the fixed color selected by a color code (0-9, a-f, either case).
func ColorFor(code rune) (RGB, bool) {
	code = unicode.ToLower(code)
	switch {
	case code >= '0' && code <= '9':
		return palette[code-'0'], true
	case code >= 'a' && code <= 'f':
		return palette[code-'a'+10], true
	}
	return RGB{}, false
}

type CodeName struct {
	Code rune
	Name string
}

// CodeNames lists every recognized code in display order.
var CodeNames = []CodeName{
	{'0', "black"},
	{'1', "dark_blue"},
	{'2', "dark_green"},
	{'3', "dark_aqua"},
	{'4', "dark_red"},
	{'5', "dark_purple"},
	{'6', "gold"},
	{'7', "gray"},
	{'8', "dark_gray"},
	{'9', "blue"},
	{'a', "green"},
	{'b', "aqua"},
	{'c', "red"},
	{'d', "light_purple"},
	{'e', "yellow"},
	{'f', "white"},
	{CodeObfuscated, "obfuscated"},
	{CodeBold, "bold"},
	{CodeStrikethrough, "strikethrough"},
	{CodeUnderline, "underline"},
	{CodeItalic, "italic"},
	{CodeReset, "reset"},
}
