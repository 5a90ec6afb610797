// Package menu generates the command-block script for a scoreboard-driven
// snowball menu: throw a snowball to cycle the selection, look straight down to close.
package menu

import (
	"strconv"
	"strings"
)

const (
	DefaultStyle = "§e§l"
	Separator    = "——————————"

	// Players looking down past this pitch have their counter reset.
	closePitch = 88
)

type Item struct {
	Label   string `yaml:"label" json:"label"`
	Command string `yaml:"command" json:"command"`
}

type Config struct {
	Scoreboard string `yaml:"scoreboard" json:"scoreboard"`
	Title      string `yaml:"title" json:"title"`
	Style      string `yaml:"style" json:"style"`
	Items      []Item `yaml:"items" json:"items"`
}

func (c Config) style() string {
	if c.Style == "" {
		return DefaultStyle
	}
	return c.Style
}

// Script holds the four command-block groups. Each block is one command per line.
type Script struct {
	Setup    string `json:"setup"`
	Display  string `json:"display"`
	Detect   string `json:"detect"`
	Dispatch string `json:"dispatch"`
}

const (
	setupHeader     = "# Setup (run once):"
	repeatingHeader = "# Repeating command block (unconditional, always active):"
	chainHeader     = "# Chain command blocks (unconditional, always active):"
)

func (s Script) String() string {
	return setupHeader + "\n" + s.Setup + "\n\n" +
		repeatingHeader + "\n" + s.Display + "\n\n" +
		repeatingHeader + "\n" + s.Detect + "\n\n" +
		chainHeader + "\n" + s.Dispatch
}

// Build interpolates cfg into the command templates. Values are not escaped.
func Build(cfg Config) Script {
	name := cfg.Scoreboard
	return Script{
		Setup:    "scoreboard objectives add " + name + " dummy",
		Display:  displayCommand(cfg),
		Detect:   detectCommands(name),
		Dispatch: dispatchCommands(cfg),
	}
}

func selectorFor(name string, value string) string {
	return "@a[scores={" + name + "=" + value + "}]"
}

func displayCommand(cfg Config) string {
	name := cfg.Scoreboard
	var b strings.Builder
	b.WriteString("/execute as ")
	b.WriteString(selectorFor(name, "1.."))
	b.WriteString(` run titleraw @s actionbar {"rawtext":[{"text":"`)
	b.WriteString(cfg.Title)
	b.WriteString(`\n` + Separator + `\n"}`)
	for i, it := range cfg.Items {
		b.WriteString(`,{"translate":"§r§f%%5`)
		b.WriteString(it.Label)
		b.WriteString(`","with":{"rawtext":[{"selector":"@s[scores={`)
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(`}]}"},{"text":"`)
		b.WriteString(cfg.style())
		b.WriteString(`"}]}}`)
		if i < len(cfg.Items)-1 {
			b.WriteString(`,{"text":"\n"}`)
		}
	}
	b.WriteString(`,{"text":"\n` + Separator + `"}]}`)
	return b.String()
}

func detectCommands(name string) string {
	return "execute at @e[type=snowball] run scoreboard players add @p[r=2] " + name + " 1\n" +
		"execute as @a[scores={" + name + "=!0},rxm=" + strconv.Itoa(closePitch) + "] run scoreboard players set @s " + name + " 0"
}

func dispatchCommands(cfg Config) string {
	lines := make([]string, 0, len(cfg.Items))
	for i, it := range cfg.Items {
		lines = append(lines, "execute as "+selectorFor(cfg.Scoreboard, strconv.Itoa(i+1))+" at @s run "+it.Command)
	}
	return strings.Join(lines, "\n")
}

// Warnings lists configuration problems worth showing to the user. Build never rejects a config.
func Warnings(cfg Config) []string {
	var out []string
	if strings.TrimSpace(cfg.Scoreboard) == "" {
		out = append(out, "scoreboard name is empty")
	} else if strings.ContainsAny(cfg.Scoreboard, " \t") {
		out = append(out, "scoreboard name contains whitespace")
	}
	if len(cfg.Items) == 0 {
		out = append(out, "menu has no items")
	}
	for i, it := range cfg.Items {
		if strings.TrimSpace(it.Command) == "" {
			out = append(out, "item "+strconv.Itoa(i+1)+" has no command")
		}
	}
	return out
}
