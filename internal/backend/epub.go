package backend

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// EPUBBackend handles .epub books: META-INF/container.xml names the
// OPF package, the OPF spine gives reading order, and each spine
// XHTML document is one page walked with the HTML walker. Manifest
// image references are resolved against the container and inlined;
// an unresolvable reference fails the conversion.
type EPUBBackend struct{}

func (b *EPUBBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	files, err := zipMap(data, FormatEPUB)
	if err != nil {
		return nil, err
	}

	container, err := xmlEntry(files, "META-INF/container.xml", FormatEPUB)
	if err != nil {
		return nil, err
	}
	rootfile := xmlquery.FindOne(container, "//"+localName("rootfile"))
	if rootfile == nil || rootfile.SelectAttr("full-path") == "" {
		return nil, Malformed(FormatEPUB, "META-INF/container.xml", fmt.Errorf("no rootfile"))
	}
	opfPath := rootfile.SelectAttr("full-path")
	opfDir := path.Dir(opfPath)

	opf, err := xmlEntry(files, opfPath, FormatEPUB)
	if err != nil {
		return nil, err
	}

	// Manifest: item id -> href, resolved relative to the OPF.
	manifest := make(map[string]string)
	for _, item := range xmlquery.Find(opf, "//"+localName("manifest")+"/"+localName("item")) {
		manifest[item.SelectAttr("id")] = resolveHref(opfDir, item.SelectAttr("href"))
	}

	var spine []string
	for _, ref := range xmlquery.Find(opf, "//"+localName("spine")+"/"+localName("itemref")) {
		if href, ok := manifest[ref.SelectAttr("idref")]; ok {
			spine = append(spine, href)
		}
	}
	if len(spine) == 0 {
		return nil, Malformed(FormatEPUB, opfPath, fmt.Errorf("empty spine"))
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	w := newHTMLWalker(doc, pages, 0, nil)
	w.format = FormatEPUB

	meta := epubMetadata(opf)
	if meta.Title != "" {
		doc.AddTitle(meta.Title, docmodel.NodeOptions{})
	}

	for _, href := range spine {
		content, ok := files[href]
		if !ok {
			return nil, ResourceFailure(FormatEPUB, href, fmt.Errorf("spine document missing from container"))
		}
		root, err := html.Parse(bytes.NewReader(content))
		if err != nil {
			return nil, Malformed(FormatEPUB, href, err)
		}

		page := pages.AddPage(docmodel.DefaultPageGeometry)
		w.setPage(page)
		docDir := path.Dir(href)
		w.resolve = func(src string) (*docmodel.ImageData, error) {
			return resolveEPUBImage(files, docDir, src)
		}

		body := findElement(root, "body")
		if body == nil {
			body = root
		}
		if err := w.walk(body); err != nil {
			return nil, err
		}
	}
	w.finish()

	if meta.Title == "" {
		meta.Title = baseName(filename)
	}
	doc.Aggregate(meta, pages)
	return doc, nil
}

func epubMetadata(opf *xmlquery.Node) docmodel.SourceMeta {
	pick := func(name string) string {
		if n := xmlquery.FindOne(opf, "//"+localName("metadata")+"/"+localName(name)); n != nil {
			return strings.TrimSpace(n.InnerText())
		}
		return ""
	}
	meta := docmodel.SourceMeta{
		Title:    pick("title"),
		Author:   pick("creator"),
		Language: pick("language"),
	}
	if t := parseOOXMLTime(pick("date")); t != nil {
		meta.Created = t
	}
	return meta
}

// resolveEPUBImage looks a spine document's image reference up in
// the container and inlines it.
func resolveEPUBImage(files map[string][]byte, docDir, src string) (*docmodel.ImageData, error) {
	if u, err := url.Parse(src); err == nil && u.Scheme != "" {
		return nil, fmt.Errorf("external image reference %s", src)
	}
	target := resolveHref(docDir, src)
	content, ok := files[target]
	if !ok {
		return nil, fmt.Errorf("image %s not in container", target)
	}
	img, err := imageFromBytes(content)
	if err != nil {
		// Dimensions unknown (e.g. SVG); inline the bytes anyway.
		mimeType := mime.TypeByExtension(path.Ext(target))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		return &docmodel.ImageData{MimeType: mimeType, DPI: defaultDPI, URI: dataURI(mimeType, content)}, nil
	}
	return img, nil
}

func resolveHref(dir, href string) string {
	href = strings.TrimPrefix(href, "./")
	if dir == "." || dir == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(dir, href))
}
