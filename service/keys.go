package service

import (
	"fmt"
	"regexp"
	"strings"
)

// ChunkIndexWidth is the zero-padding width of chunk object names.
// Below 1,000,000 chunks lexicographic and numeric key order agree;
// at the boundary sort order silently breaks.
const ChunkIndexWidth = 6

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ValidSessionID reports whether a caller-generated session token is
// safe to embed in a storage key.
func ValidSessionID(sessionID string) bool {
	return sessionIDPattern.MatchString(sessionID)
}

func ChunkObjectName(sessionID string, index int, mimeType string) string {
	return fmt.Sprintf("%s/chunks/%0*d.%s", sessionID, ChunkIndexWidth, index, ExtensionForMimeType(mimeType))
}

func ManifestObjectName(sessionID string) string {
	return sessionID + "/manifest.json"
}

// ExtensionForMimeType maps a container/codec descriptor such as
// "video/webm;codecs=vp9,opus" to a file extension.
func ExtensionForMimeType(mimeType string) string {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	switch strings.ToLower(strings.TrimSpace(base)) {
	case "video/webm", "audio/webm":
		return "webm"
	case "video/mp4":
		return "mp4"
	case "audio/mp4":
		return "m4a"
	case "audio/ogg", "application/ogg":
		return "ogg"
	case "audio/mpeg":
		return "mp3"
	case "audio/wav", "audio/x-wav":
		return "wav"
	default:
		return "bin"
	}
}
