// Package archive bundles converted files into a single downloadable archive.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

type Format string

const (
	FormatZip     Format = "zip"
	FormatTarZstd Format = "tar.zst"
)

// DefaultBaseName is the bundle name without extension.
const DefaultBaseName = "converted_models"

type Entry struct {
	Name string
	Data []byte
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zip":
		return FormatZip, nil
	case "tar.zst", "tzst", "zst":
		return FormatTarZstd, nil
	}
	return "", fmt.Errorf("unknown bundle format %q (want zip or tar.zst)", s)
}

// FormatForPath picks the format from a file name, defaulting to zip.
func FormatForPath(p string) Format {
	if strings.HasSuffix(strings.ToLower(p), ".tar.zst") {
		return FormatTarZstd
	}
	return FormatZip
}

func (f Format) FileName() string { return DefaultBaseName + "." + string(f) }

func (f Format) ContentType() string {
	if f == FormatTarZstd {
		return "application/zstd"
	}
	return "application/zip"
}

// UniqueNames makes entry names unique by suffixing repeats: a.obj, a-2.obj, ...
// Names are cleaned to forward-slash relative paths.
func UniqueNames(entries []Entry) []Entry {
	seen := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		name := cleanName(e.Name)
		if n := seen[name]; n > 0 {
			ext := path.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			cand := name
			for k := n + 1; ; k++ {
				cand = stem + "-" + strconv.Itoa(k) + ext
				if seen[cand] == 0 {
					break
				}
			}
			seen[name] = n + 1
			name = cand
		}
		seen[name]++
		out = append(out, Entry{Name: name, Data: e.Data})
	}
	return out
}

func cleanName(name string) string {
	name = path.Clean("/" + filepath.ToSlash(name))
	return strings.TrimPrefix(name, "/")
}

// Write streams entries to w in the given format.
func Write(w io.Writer, format Format, entries []Entry) error {
	entries = UniqueNames(entries)
	now := time.Now()
	switch format {
	case FormatZip, "":
		return writeZip(w, entries, now)
	case FormatTarZstd:
		return writeTarZstd(w, entries, now)
	}
	return fmt.Errorf("unknown bundle format %q", format)
}

func writeZip(w io.Writer, entries []Entry, now time.Time) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip %s: %w", e.Name, err)
		}
	}
	return zw.Close()
}

func writeTarZstd(w io.Writer, entries []Entry, now time.Time) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	tw := tar.NewWriter(enc)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    0o644,
			Size:    int64(len(e.Data)),
			ModTime: now,
			Format:  tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			_ = enc.Close()
			return fmt.Errorf("tar %s: %w", e.Name, err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			_ = enc.Close()
			return fmt.Errorf("tar %s: %w", e.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// WriteFile writes the bundle next to its final path and renames it into place,
// so a failed write never leaves a truncated archive behind.
func WriteFile(dst string, format Format, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".bundle-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, format, entries); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
