// Package backend hosts the format-specific parsers that populate
// the normalized document tree, behind a single contract: walk the
// source in reading order and emit nodes through the tree assembly
// routine, with provenance on everything that can be attributed to a
// location.
package backend

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// Format identifies a source document type.
type Format string

const (
	FormatDocx     Format = "docx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatPPTX     Format = "pptx"
	FormatEPUB     Format = "epub"
	FormatText     Format = "text"
	FormatImage    Format = "image"
	FormatArchive  Format = "archive"
	FormatPDF      Format = "pdf"
)

// Backend converts one source format into a finished document tree.
// Conversion is single-threaded; all tree/allocator/numbering state
// is scoped to the call. A backend either returns a complete tree or
// a classified error, never a silent partial result.
type Backend interface {
	Convert(data []byte, filename string) (*docmodel.Document, error)
}

// DirectBackend is the bypass path for formats that intentionally do
// not populate the tree (PDF): it emits rendered Markdown directly.
type DirectBackend interface {
	Render(data []byte, filename string) (string, error)
}

// Result is the outcome of a conversion: a tree, or direct output
// for bypass formats.
type Result struct {
	Format   Format
	Doc      *docmodel.Document
	Markdown string
	Direct   bool
}

var extensions = map[string]Format{
	".docx":     FormatDocx,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".csv":      FormatCSV,
	".xlsx":     FormatXLSX,
	".pptx":     FormatPPTX,
	".epub":     FormatEPUB,
	".txt":      FormatText,
	".png":      FormatImage,
	".jpg":      FormatImage,
	".jpeg":     FormatImage,
	".gif":      FormatImage,
	".webp":     FormatImage,
	".tiff":     FormatImage,
	".tif":      FormatImage,
	".bmp":      FormatImage,
	".zip":      FormatArchive,
	".tar":      FormatArchive,
	".txz":      FormatArchive,
	".xz":       FormatArchive,
	".pdf":      FormatPDF,
}

// Detect classifies a filename before any conversion state is
// allocated. Unrecognized extensions fail with the unsupported class.
func Detect(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if strings.HasSuffix(strings.ToLower(filename), ".tar.xz") {
		return FormatArchive, nil
	}
	f, ok := extensions[ext]
	if !ok {
		return "", Unsupported(ext)
	}
	return f, nil
}

// IsSupported reports whether a filename maps to some backend.
func IsSupported(filename string) bool {
	_, err := Detect(filename)
	return err == nil
}

// SupportedExtensions lists the recognized extensions, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// forFormat is the capability lookup: format tag to backend. Adding
// a format means adding a row here, nothing else.
func forFormat(f Format) Backend {
	switch f {
	case FormatDocx:
		return &DOCXBackend{}
	case FormatHTML:
		return &HTMLBackend{}
	case FormatMarkdown:
		return &MarkdownBackend{}
	case FormatCSV:
		return &CSVBackend{}
	case FormatXLSX:
		return &XLSXBackend{}
	case FormatPPTX:
		return &PPTXBackend{}
	case FormatEPUB:
		return &EPUBBackend{}
	case FormatText:
		return &TextBackend{}
	case FormatImage:
		return &ImageBackend{}
	case FormatArchive:
		return &ArchiveBackend{}
	}
	return nil
}

// Convert is the driver: detect the format, dispatch to its backend,
// and return the finished tree (or direct output for PDF).
func Convert(data []byte, filename string) (*Result, error) {
	format, err := Detect(filename)
	if err != nil {
		return nil, err
	}
	if format == FormatPDF {
		md, err := (&PDFBackend{}).Render(data, filename)
		if err != nil {
			return nil, err
		}
		return &Result{Format: format, Markdown: md, Direct: true}, nil
	}
	b := forFormat(format)
	if b == nil {
		return nil, Unsupported(filepath.Ext(filename))
	}
	doc, err := b.Convert(data, filename)
	if err != nil {
		return nil, err
	}
	return &Result{Format: format, Doc: doc}, nil
}

// baseName strips the extension for use as a fallback document name.
func baseName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
