// Command mctext renders §-formatted Minecraft text in the terminal, animating
// obfuscated runs. Menu files can be previewed with the selection cycling like
// a thrown snowball.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"

	"craftkit.ai/internal/config"
	"craftkit.ai/internal/mctext"
	"craftkit.ai/internal/mctext/obfuscate"
	"craftkit.ai/internal/menu"
)

func main() {
	var (
		text       = flag.String("text", "", "text to render (§ codes allowed)")
		menuPath   = flag.String("menu", "", "menu.yaml to preview instead of -text")
		selected   = flag.Int("select", 1, "initially selected menu item (1-based)")
		tick       = flag.Duration("tick", 0, "obfuscation tick (default from config, 50ms)")
		configPath = flag.String("config", "", "path to craftkit.yaml (or set CRAFTKIT_CONFIG)")
		once       = flag.Bool("once", false, "print the runs and exit instead of animating")
		codes      = flag.Bool("codes", false, "list formatting codes and exit")
	)
	flag.Parse()

	if *codes {
		for _, c := range mctext.CodeNames {
			swatch := ""
			if rgb, ok := mctext.ColorFor(c.Code); ok {
				swatch = rgb.Hex()
			}
			fmt.Printf("§%c  %-14s %s\n", c.Code, c.Name, swatch)
		}
		return
	}

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	animCfg := cfg.Preview.Animator()
	if *tick > 0 {
		animCfg.Interval = *tick
	}

	v := &view{selected: *selected}
	switch {
	case *menuPath != "":
		raw, err := os.ReadFile(*menuPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read menu:", err)
			os.Exit(1)
		}
		var m menu.Config
		if err := yaml.Unmarshal(raw, &m); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *menuPath, err)
			os.Exit(1)
		}
		if m.Style == "" {
			m.Style = cfg.Menu.DefaultStyle
		}
		v.menu = &m
	case *text != "":
		v.text = *text
	default:
		fmt.Fprintln(os.Stderr, "missing -text or -menu")
		os.Exit(2)
	}

	anim := obfuscate.New(animCfg)
	if *once {
		for _, r := range anim.Render(v.runs()) {
			fmt.Printf("%s %q%s\n", r.Color.Hex(), r.Text, flags(r.Style))
		}
		return
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen init:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	anim.Start(ctx)
	defer anim.Stop()

	run(screen, anim, v)
}

func run(screen tcell.Screen, anim *obfuscate.Animator, v *view) {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	v.draw(screen, anim)
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
			v.draw(screen, anim)
		case <-anim.Frames():
			if v.animated() {
				v.draw(screen, anim)
			}
		}
	}
}

func flags(s mctext.Style) string {
	out := ""
	for _, f := range []struct {
		on   bool
		name string
	}{
		{s.Bold, "bold"}, {s.Italic, "italic"}, {s.Underline, "underline"},
		{s.Strikethrough, "strikethrough"}, {s.Obfuscated, "obfuscated"},
	} {
		if f.on {
			out += " " + f.name
		}
	}
	return out
}
