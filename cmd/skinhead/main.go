// Command skinhead renders a 1000x1000 head avatar from a Minecraft skin PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"craftkit.ai/internal/skin"
)

func main() {
	var (
		in       = flag.String("in", "", "skin image path, or - for stdin")
		out      = flag.String("out", skin.DownloadName, "output PNG path, or - for stdout")
		allowAny = flag.Bool("allow_any_format", false, "accept JPEG/GIF skins as well as PNG")
	)
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "missing -in")
		os.Exit(2)
	}
	if *out == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "refusing to write PNG data to a terminal; use -out or redirect stdout")
		os.Exit(2)
	}

	var src io.Reader = os.Stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		defer f.Close()
		src = f
	}

	png, err := skin.HeadPNG(src, skin.Options{RequirePNG: !*allowAny})
	if err != nil {
		var fe *skin.FormatError
		if errors.As(err, &fe) {
			fmt.Fprintln(os.Stderr, "unsupported skin:", err)
		} else {
			fmt.Fprintln(os.Stderr, "load skin:", err)
		}
		os.Exit(1)
	}

	if *out == "-" {
		if _, err := os.Stdout.Write(png); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
		return
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "mkdir:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, png, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
}
