// Package transcripts parses uploaded transcript files into the raw
// (text, segments) shape the retrieval engine indexes.
package transcripts

import (
	"path/filepath"
	"strings"
)

// Format enumerates supported transcript file formats.
type Format string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown Format = ""
	// FormatTXT represents plain text transcripts.
	FormatTXT Format = "txt"
	// FormatPDF represents PDF transcripts.
	FormatPDF Format = "pdf"
	// FormatSRT represents SubRip caption files.
	FormatSRT Format = "srt"
	// FormatVTT represents WebVTT caption files.
	FormatVTT Format = "vtt"
)

// DetectFormat infers a transcript format from the provided path's extension.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".text":
		return FormatTXT
	case ".pdf":
		return FormatPDF
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	default:
		return FormatUnknown
	}
}
