package protocol

const (
	// Request validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Conversion input.
	ErrParse       = "E_PARSE"
	ErrImageLoad   = "E_IMAGE_LOAD"
	ErrImageFormat = "E_IMAGE_FORMAT"

	ErrTooLarge = "E_TOO_LARGE"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:  {},
	ErrParse:       {},
	ErrImageLoad:   {},
	ErrImageFormat: {},
	ErrTooLarge:    {},
	ErrInternal:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
