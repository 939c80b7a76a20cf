package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps document file extensions to MIME types. The set
// covers what knowledge base buckets typically hold; source-code
// extensions are deliberately absent.
var mimeTypes = map[string]string{
	// Text documents
	".txt": "text/plain",
	".md":  "text/markdown",
	".mdx": "text/markdown",
	".rst": "text/x-rst",

	// Rich documents
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".rtf":  "application/rtf",

	// Web
	".html": "text/html",
	".htm":  "text/html",

	// Structured data
	".json":  "application/json",
	".jsonl": "application/json",
	".yaml":  "text/x-yaml",
	".yml":   "text/x-yaml",
	".xml":   "text/xml",
	".csv":   "text/csv",
	".tsv":   "text/tab-separated-values",
}

// MimeTypeForPath returns the MIME type for an object key based on its
// extension. Unknown extensions fall back to application/octet-stream.
func MimeTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
