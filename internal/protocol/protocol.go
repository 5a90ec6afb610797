package protocol

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

const Version = "1.0"

// Message types.
const (
	TypePreview = "PREVIEW"
	TypeFrame   = "FRAME"
	TypeError   = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

var errNotObject = errors.New("protocol: message is not a JSON object")

// DecodeBase reads only the routing fields; the body is decoded by the handler for its type.
func DecodeBase(b []byte) (BaseMessage, error) {
	if !gjson.ValidBytes(b) {
		return BaseMessage{}, errors.New("protocol: invalid json")
	}
	res := gjson.ParseBytes(b)
	if !res.IsObject() {
		return BaseMessage{}, errNotObject
	}
	return BaseMessage{
		Type:            res.Get("type").String(),
		ProtocolVersion: res.Get("protocol_version").String(),
	}, nil
}

// CompatibleVersion accepts an empty version or any 1.x.
func CompatibleVersion(v string) bool {
	if v == "" {
		return true
	}
	major, _, _ := strings.Cut(v, ".")
	return major == "1"
}
