// Package ingest turns uploaded statement files into input for the parsing
// stages: CSV buffers become line items directly, unstructured text is
// pre-sliced to its transaction table and handed to the row parser.
package ingest

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Kind classifies an uploaded file.
type Kind int

const (
	KindUnsupported Kind = iota
	KindCSV
	KindText
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindCSV:
		return "csv"
	case KindText:
		return "text"
	default:
		return "unsupported"
	}
}

// DetectKind classifies a file by extension first, falling back to a
// content sniff for unknown extensions. Binary content is unsupported;
// OCR/PDF extraction happens upstream and arrives here as plain text.
func DetectKind(filename string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return KindCSV
	case ".txt", ".text":
		return KindText
	}

	if bytes.ContainsRune(data, 0) {
		return KindUnsupported
	}
	if looksLikeCSV(data) {
		return KindCSV
	}
	if len(bytes.TrimSpace(data)) > 0 {
		return KindText
	}
	return KindUnsupported
}

// looksLikeCSV reports whether the first lines share a consistent comma or
// semicolon field count above one.
func looksLikeCSV(data []byte) bool {
	lines := strings.Split(string(data), "\n")
	var sample []string
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			sample = append(sample, t)
		}
		if len(sample) == 3 {
			break
		}
	}
	if len(sample) < 2 {
		return false
	}

	for _, sep := range []string{",", ";"} {
		count := strings.Count(sample[0], sep)
		if count == 0 {
			continue
		}
		consistent := true
		for _, l := range sample[1:] {
			if strings.Count(l, sep) != count {
				consistent = false
				break
			}
		}
		if consistent {
			return true
		}
	}
	return false
}
