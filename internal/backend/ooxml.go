package backend

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// zipMap reads every entry of a zip container into memory, keyed by
// entry name. OOXML and EPUB packages are small enough that full
// materialization keeps the resource-resolution boundary trivial:
// every reference lookup is a map hit against already-read bytes.
func zipMap(data []byte, format Format) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, Malformed(format, "archive", err)
	}
	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, Malformed(format, f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, Malformed(format, f.Name, err)
		}
		files[f.Name] = content
	}
	return files, nil
}

// xmlEntry parses one container entry as XML.
func xmlEntry(files map[string][]byte, name string, format Format) (*xmlquery.Node, error) {
	content, ok := files[name]
	if !ok {
		return nil, ResourceFailure(format, name, fmt.Errorf("missing container entry"))
	}
	node, err := xmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, Malformed(format, name, err)
	}
	return node, nil
}

// localName builds the namespace-agnostic xpath step for OOXML
// elements, which arrive under varying namespace prefixes.
func localName(name string) string {
	return fmt.Sprintf("*[local-name()='%s']", name)
}

// readCoreProps extracts docProps/core.xml metadata shared by the
// OOXML formats. Missing entries are fine; zero values mean the
// source did not declare the fact.
func readCoreProps(files map[string][]byte, format Format) docmodel.SourceMeta {
	var meta docmodel.SourceMeta
	content, ok := files["docProps/core.xml"]
	if !ok {
		return meta
	}
	root, err := xmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return meta
	}
	pick := func(name string) string {
		if n := xmlquery.FindOne(root, "//"+localName(name)); n != nil {
			return n.InnerText()
		}
		return ""
	}
	meta.Title = pick("title")
	meta.Author = pick("creator")
	meta.Language = pick("language")
	if t := parseOOXMLTime(pick("created")); t != nil {
		meta.Created = t
	}
	if t := parseOOXMLTime(pick("modified")); t != nil {
		meta.Modified = t
	}
	return meta
}

func parseOOXMLTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
