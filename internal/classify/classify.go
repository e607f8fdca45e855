// Package classify determines a file's content type and language from
// signature bytes, extension, and, as a last resort, lexical sampling of
// the file's head. Classification never fails: unreadable or unrecognized
// files classify as binary/unknown so the pipeline can skip them.
package classify

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// sampleSize is how many leading bytes are read for signature probing and
// lexical guessing.
const sampleSize = 1024

// Classification is the result of classifying one file.
type Classification struct {
	ContentType string // MIME-style content type from the signature probe
	Language    string // canonical lowercase language name
	Binary      bool   // true when the file should be skipped by analyzers
}

// Detect classifies the file at path. Pure aside from reading the file's
// head; safe for concurrent use.
func Detect(path string) Classification {
	f, err := os.Open(path)
	if err != nil {
		return Classification{ContentType: "unknown", Language: LangUnknown, Binary: true}
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return Classification{ContentType: "unknown", Language: LangUnknown, Binary: true}
	}
	return DetectBytes(path, head)
}

// readHead reads up to sampleSize leading bytes. A single Read may legally
// return short, so the full available head is accumulated with ReadFull.
func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, sampleSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return head[:n], nil
}

// DetectBytes classifies from a path and the file's leading bytes. Split
// out so tests can exercise classification without touching the disk.
func DetectBytes(path string, head []byte) Classification {
	contentType := sniffContentType(head)

	// Signature probe first: media and archive signatures are authoritative.
	if lang, ok := languageForContentType(contentType); ok {
		return Classification{ContentType: contentType, Language: lang, Binary: isBinaryLanguage(lang)}
	}

	// A null byte in the head marks binary regardless of extension.
	if bytes.IndexByte(head, 0) >= 0 {
		return Classification{ContentType: contentType, Language: LangUnknown, Binary: true}
	}

	// Extension lookup.
	if lang, ok := LanguageForFile(path); ok {
		return Classification{ContentType: contentType, Language: lang}
	}

	// Lexical fallback over the sampled content.
	if lang, ok := guessLexical(head); ok {
		return Classification{ContentType: contentType, Language: lang}
	}

	if len(head) == 0 || strings.HasPrefix(contentType, "text/") {
		return Classification{ContentType: contentType, Language: LangText}
	}
	return Classification{ContentType: contentType, Language: LangUnknown, Binary: true}
}

// sniffContentType wraps http.DetectContentType and strips the charset
// suffix it appends to text types.
func sniffContentType(head []byte) string {
	ct := http.DetectContentType(head)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// languageForContentType maps sniffed signature types to languages. Only
// types the sniffer identifies from magic bytes are listed; text/plain is
// deliberately absent because it carries no language signal.
func languageForContentType(ct string) (string, bool) {
	switch {
	case strings.HasPrefix(ct, "image/"):
		return LangImage, true
	case ct == "application/pdf", ct == "application/zip", ct == "application/x-rar-compressed":
		return LangDocument, true
	case ct == "application/ogg", strings.HasPrefix(ct, "audio/"), strings.HasPrefix(ct, "video/"):
		return LangUnknown, true
	case ct == "text/html":
		return LangHTML, true
	case ct == "text/xml", ct == "application/xml":
		return LangXML, true
	default:
		return "", false
	}
}

func isBinaryLanguage(lang string) bool {
	return lang == LangImage || lang == LangDocument || lang == LangUnknown
}

// guessLexical inspects the sampled head for language markers when the
// extension is unrecognized. Heuristic by design.
func guessLexical(head []byte) (string, bool) {
	s := string(head)
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "#!") {
		firstLine, _, _ := strings.Cut(trimmed, "\n")
		switch {
		case strings.Contains(firstLine, "python"):
			return LangPython, true
		case strings.Contains(firstLine, "node"):
			return LangJavaScript, true
		case strings.Contains(firstLine, "sh"):
			return LangText, true
		}
	}
	switch {
	case strings.HasPrefix(trimmed, "<?xml"):
		return LangXML, true
	case strings.HasPrefix(trimmed, "<!DOCTYPE html"), strings.HasPrefix(trimmed, "<html"):
		return LangHTML, true
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return LangJSON, true
	case strings.HasPrefix(trimmed, "package ") && strings.Contains(s, "func "):
		return LangGo, true
	case strings.Contains(s, "def ") && strings.Contains(s, "import "):
		return LangPython, true
	case strings.Contains(s, "function ") || strings.Contains(s, "=> {"):
		return LangJavaScript, true
	}
	return "", false
}

// Ext returns the lowercased extension of path, including files whose
// whole basename is extension-like (".gitignore").
func Ext(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") {
			return strings.ToLower(base)
		}
	}
	return ext
}
