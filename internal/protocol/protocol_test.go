package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"craftkit.ai/internal/mctext"
)

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"PREVIEW","protocol_version":"1.0","text":"§kab"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d := cmp.Diff(BaseMessage{Type: TypePreview, ProtocolVersion: "1.0"}, m); d != "" {
		t.Fatalf("base mismatch (-want +got):\n%s", d)
	}
	for _, bad := range []string{`{"type":`, `[1,2]`, `"PREVIEW"`} {
		if _, err := DecodeBase([]byte(bad)); err == nil {
			t.Fatalf("%s: expected error", bad)
		}
	}
}

func TestCompatibleVersion(t *testing.T) {
	for v, want := range map[string]bool{"": true, "1.0": true, "1.3": true, "1": true, "0.9": false, "2.0": false} {
		if got := CompatibleVersion(v); got != want {
			t.Fatalf("CompatibleVersion(%q)=%v want %v", v, got, want)
		}
	}
}

func TestNewFrame(t *testing.T) {
	f := NewFrame(3, mctext.Tokenize("§6§lGold"))
	want := FrameMsg{
		Type:            TypeFrame,
		ProtocolVersion: Version,
		Seq:             3,
		Runs:            []RunJSON{{Text: "Gold", Color: "#FFAA00", Bold: true}},
	}
	if d := cmp.Diff(want, f); d != "" {
		t.Fatalf("frame mismatch (-want +got):\n%s", d)
	}
}
