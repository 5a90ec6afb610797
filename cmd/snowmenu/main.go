// Command snowmenu prints the command-block script for a snowball menu.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"craftkit.ai/internal/catalogs"
	"craftkit.ai/internal/config"
	"craftkit.ai/internal/menu"
)

type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

func main() {
	var (
		items   listFlag
		presets listFlag

		scoreboard  = flag.String("scoreboard", "", "scoreboard objective name")
		title       = flag.String("title", "", "menu title (§ codes allowed)")
		style       = flag.String("style", "", "selected-item style (default from config, §e§l)")
		menuPath    = flag.String("menu", "", "menu.yaml with scoreboard/title/style/items")
		configPath  = flag.String("config", "", "path to craftkit.yaml (or set CRAFTKIT_CONFIG)")
		presetsPath = flag.String("presets", "", "command preset catalog (default from config or built-in)")
		listPresets = flag.Bool("list-presets", false, "list presets and exit")
		category    = flag.String("category", "", "preset category filter for -list-presets")
		preview     = flag.Int("preview", 0, "also print the actionbar preview with this item selected (1-based)")
		outPath     = flag.String("out", "", "write the script to this file instead of stdout")
	)
	flag.Var(&items, "item", `menu item "label=command" (repeatable)`)
	flag.Var(&presets, "preset", "preset id to append (repeatable)")
	flag.Parse()

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *presetsPath == "" {
		*presetsPath = cfg.PresetsPath
	}
	cat, err := catalogs.Load(*presetsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load presets:", err)
		os.Exit(1)
	}

	if *listPresets {
		for _, p := range cat.ByCategory(*category) {
			fmt.Printf("%-16s %-14s %-20s %s\n", p.ID, p.Category, p.Label, p.Command)
		}
		return
	}

	var m menu.Config
	if *menuPath != "" {
		raw, err := os.ReadFile(*menuPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read menu:", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(raw, &m); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *menuPath, err)
			os.Exit(1)
		}
	}
	if *scoreboard != "" {
		m.Scoreboard = *scoreboard
	}
	if *title != "" {
		m.Title = *title
	}
	if *style != "" {
		m.Style = *style
	}
	if m.Style == "" {
		m.Style = cfg.Menu.DefaultStyle
	}
	for _, it := range items {
		label, command, ok := strings.Cut(it, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "bad -item %q: want label=command\n", it)
			os.Exit(2)
		}
		m.Items = append(m.Items, menu.Item{Label: strings.TrimSpace(label), Command: strings.TrimSpace(command)})
	}
	if len(presets) > 0 {
		extra, err := cat.Items(presets...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		m.Items = append(m.Items, extra...)
	}

	for _, w := range menu.Warnings(m) {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	script := menu.Build(m).String() + "\n"
	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(script), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(script)
	}

	if *preview > 0 {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "# Preview:")
		fmt.Fprintln(os.Stderr, menu.PreviewText(m, *preview))
	}
}
