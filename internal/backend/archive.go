package backend

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// ArchiveBackend handles .zip, .tar, .tar.xz and .xz containers by
// converting each supported member and merging the member trees into
// one document, a level-1 section per member in name order. Member
// pages are renumbered past the pages already merged so provenance
// stays within the combined page count.
type ArchiveBackend struct{}

type archiveMember struct {
	name string
	data []byte
}

func (b *ArchiveBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	lower := strings.ToLower(filename)
	var members []archiveMember
	var err error
	switch {
	case strings.HasSuffix(lower, ".zip"):
		members, err = zipMembers(data)
	case strings.HasSuffix(lower, ".tar"):
		members, err = tarMembers(bytes.NewReader(data))
	case strings.HasSuffix(lower, ".tar.xz") || strings.HasSuffix(lower, ".txz"):
		xzr, xerr := xz.NewReader(bytes.NewReader(data))
		if xerr != nil {
			return nil, Malformed(FormatArchive, "xz stream", xerr)
		}
		members, err = tarMembers(xzr)
	case strings.HasSuffix(lower, ".xz"):
		xzr, xerr := xz.NewReader(bytes.NewReader(data))
		if xerr != nil {
			return nil, Malformed(FormatArchive, "xz stream", xerr)
		}
		inner, rerr := io.ReadAll(xzr)
		if rerr != nil {
			return nil, Malformed(FormatArchive, "xz stream", rerr)
		}
		members = []archiveMember{{name: strings.TrimSuffix(path.Base(filename), ".xz"), data: inner}}
	default:
		return nil, Unsupported(path.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()

	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })

	converted := 0
	for _, m := range members {
		format, derr := Detect(m.name)
		if derr != nil || format == FormatArchive || format == FormatPDF {
			// Unsupported members and nested containers are skipped;
			// an archive is a carrier, not content.
			continue
		}
		sub := forFormat(format)
		memberDoc, cerr := sub.Convert(m.data, path.Base(m.name))
		if cerr != nil {
			return nil, cerr
		}

		header := doc.AddHeading(m.name, 1, docmodel.NodeOptions{})
		pageOffset := pages.PageCount()
		for _, g := range memberDoc.Metadata.Pages {
			pages.AddPage(g)
		}
		doc.Merge(memberDoc, header.SelfRef, pageOffset)
		converted++
	}
	if converted == 0 {
		return nil, Malformed(FormatArchive, "members", errors.New("archive contains no convertible members"))
	}

	doc.Aggregate(docmodel.SourceMeta{Title: baseName(filename)}, pages)
	return doc, nil
}

func zipMembers(data []byte) ([]archiveMember, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, Malformed(FormatArchive, "zip", err)
	}
	var members []archiveMember
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, Malformed(FormatArchive, f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, Malformed(FormatArchive, f.Name, err)
		}
		members = append(members, archiveMember{name: f.Name, data: content})
	}
	return members, nil
}

func tarMembers(r io.Reader) ([]archiveMember, error) {
	tr := tar.NewReader(r)
	var members []archiveMember
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Malformed(FormatArchive, "tar", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, Malformed(FormatArchive, hdr.Name, err)
		}
		members = append(members, archiveMember{name: hdr.Name, data: content})
	}
	return members, nil
}
