package backend

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// ImageBackend handles standalone raster images: one Picture node
// with a fully inlined payload, on a single page sized to the pixel
// dimensions at the default DPI.
type ImageBackend struct{}

const defaultDPI = 72

func (b *ImageBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	payload, err := imageFromBytes(data)
	if err != nil {
		return nil, Malformed(FormatImage, "image", err)
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	// At 72 DPI one pixel is one point.
	page := pages.AddPage(docmodel.PageGeometry{
		Width:  float64(payload.Width) * defaultDPI / float64(payload.DPI),
		Height: float64(payload.Height) * defaultDPI / float64(payload.DPI),
	})

	doc.AddPicture(payload, docmodel.NodeOptions{
		Prov: []docmodel.Provenance{pages.FullPage(page)},
	})

	doc.Aggregate(docmodel.SourceMeta{Title: baseName(filename)}, pages)
	return doc, nil
}

// imageFromBytes decodes image dimensions and inlines the bytes as
// a data URI. The blank codec imports above register tiff/webp/bmp
// alongside the stdlib formats.
func imageFromBytes(data []byte) (*docmodel.ImageData, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	mime := "image/" + format
	return &docmodel.ImageData{
		MimeType: mime,
		Width:    cfg.Width,
		Height:   cfg.Height,
		DPI:      defaultDPI,
		URI:      dataURI(mime, data),
	}, nil
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// imageFromDataURI re-inlines an already-inline data URI, decoding
// dimensions when possible. Returns nil for URIs it cannot parse;
// the caller emits the picture without a payload rather than
// failing, since the bytes were never external to begin with.
func imageFromDataURI(uri string) *docmodel.ImageData {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	img, err := imageFromBytes(data)
	if err != nil {
		// Dimensions unknown; keep the payload.
		return &docmodel.ImageData{MimeType: mime, DPI: defaultDPI, URI: uri}
	}
	return img
}
