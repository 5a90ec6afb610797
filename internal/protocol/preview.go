package protocol

import "craftkit.ai/internal/mctext"

// PREVIEW (client -> server)
type PreviewMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// FRAME (server -> client)
type FrameMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Seq             uint64    `json:"seq"`
	Runs            []RunJSON `json:"runs"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RunJSON struct {
	Text          string `json:"text"`
	Color         string `json:"color"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Obfuscated    bool   `json:"obfuscated,omitempty"`
}

func RunsJSON(runs []mctext.Run) []RunJSON {
	out := make([]RunJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunJSON{
			Text:          r.Text,
			Color:         r.Color.Hex(),
			Bold:          r.Bold,
			Italic:        r.Italic,
			Underline:     r.Underline,
			Strikethrough: r.Strikethrough,
			Obfuscated:    r.Obfuscated,
		})
	}
	return out
}

func NewFrame(seq uint64, runs []mctext.Run) FrameMsg {
	return FrameMsg{Type: TypeFrame, ProtocolVersion: Version, Seq: seq, Runs: RunsJSON(runs)}
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: message}
}
