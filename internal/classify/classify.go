// Package classify categorizes buffer snapshots before they reach a
// transformation. Binary representations win over text ones: many producers
// publish both at once, and transforming the text preview of an image would
// corrupt the payload the user actually copied.
package classify

import (
	"strings"
	"unicode/utf8"

	"clipflow/internal/buffer"
)

// Kind is the closed set of content categories.
type Kind string

const (
	KindText    Kind = "text"
	KindBinary  Kind = "binary"
	KindEmpty   Kind = "empty"
	KindUnknown Kind = "unknown"
)

// Content is a classified buffer snapshot.
type Content struct {
	Kind     Kind
	Text     string // set only for KindText
	MIMEType string // set only for KindBinary
	Marked   bool
}

// binaryPrefixes covers the representation families that must never be
// treated as text even when a text slot is present.
var binaryPrefixes = []string{"image/", "audio/", "video/", "application/octet-stream", "application/pdf"}

// Classify maps a snapshot to exactly one content kind.
func Classify(snap buffer.Snapshot) Content {
	if snap.Empty() {
		return Content{Kind: KindEmpty, Marked: snap.Marked}
	}
	if mime, ok := binaryType(snap); ok {
		return Content{Kind: KindBinary, MIMEType: mime, Marked: snap.Marked}
	}
	if text, ok := snap.Text(); ok {
		if !utf8.ValidString(text) {
			return Content{Kind: KindUnknown, Marked: snap.Marked}
		}
		return Content{Kind: KindText, Text: text, Marked: snap.Marked}
	}
	return Content{Kind: KindUnknown, Marked: snap.Marked}
}

func binaryType(snap buffer.Snapshot) (string, bool) {
	for mime := range snap.Slots {
		for _, p := range binaryPrefixes {
			if strings.HasPrefix(mime, p) {
				return mime, true
			}
		}
	}
	return "", false
}
