package backend

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func TestImage_SinglePicture(t *testing.T) {
	b := &ImageBackend{}
	doc, err := b.Convert(encodePNG(t, 4, 3), "photo.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Pictures) != 1 {
		t.Fatalf("expected 1 picture, got %d", len(doc.Pictures))
	}
	pic := doc.Pictures[0]
	if pic.Image == nil {
		t.Fatal("expected inlined image payload")
	}
	if pic.Image.MimeType != "image/png" {
		t.Errorf("expected image/png, got %q", pic.Image.MimeType)
	}
	if pic.Image.Width != 4 || pic.Image.Height != 3 {
		t.Errorf("expected 4x3 pixels, got %dx%d", pic.Image.Width, pic.Image.Height)
	}
	if !strings.HasPrefix(pic.Image.URI, "data:image/png;base64,") {
		t.Errorf("expected data URI payload, got %q", pic.Image.URI)
	}
}

func TestImage_PageSizedToPixels(t *testing.T) {
	b := &ImageBackend{}
	doc, err := b.Convert(encodePNG(t, 100, 50), "photo.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Metadata.NumPages != 1 {
		t.Fatalf("expected a single page, got %d", doc.Metadata.NumPages)
	}
	g := doc.Metadata.Pages[0]
	if g.Width != 100 || g.Height != 50 {
		t.Errorf("expected page geometry 100x50 points at 72 DPI, got %+v", g)
	}
	pic := doc.Pictures[0]
	if len(pic.Prov) != 1 || pic.Prov[0].PageNo != 1 {
		t.Errorf("expected full-page provenance on page 1, got %+v", pic.Prov)
	}
}

func TestImage_Undecodable(t *testing.T) {
	b := &ImageBackend{}
	_, err := b.Convert([]byte("not an image"), "photo.png")
	if err == nil {
		t.Fatal("expected error for undecodable bytes")
	}
	class, ok := Classify(err)
	if !ok || class != ClassMalformedSource {
		t.Errorf("expected malformed_source class, got %q (%v)", class, ok)
	}
}

func TestImageFromDataURI(t *testing.T) {
	uri := dataURI("image/png", encodePNG(t, 2, 2))
	img := imageFromDataURI(uri)
	if img == nil {
		t.Fatal("expected payload from valid data URI")
	}
	if img.Width != 2 || img.Height != 2 {
		t.Errorf("expected decoded dimensions 2x2, got %dx%d", img.Width, img.Height)
	}
}

func TestImageFromDataURI_Invalid(t *testing.T) {
	cases := []string{
		"https://example.com/a.png",
		"data:image/png,raw-not-base64-tagged",
		"data:image/png;base64,!!!!",
	}
	for _, uri := range cases {
		if img := imageFromDataURI(uri); img != nil {
			t.Errorf("imageFromDataURI(%q) should be nil, got %+v", uri, img)
		}
	}
}

func TestImageFromDataURI_UndecodablePayloadKept(t *testing.T) {
	uri := "data:application/octet-stream;base64,AAAA"
	img := imageFromDataURI(uri)
	if img == nil {
		t.Fatal("expected payload to be kept even when dimensions are unknown")
	}
	if img.URI != uri || img.MimeType != "application/octet-stream" {
		t.Errorf("expected original payload preserved, got %+v", img)
	}
	if img.Width != 0 || img.Height != 0 {
		t.Errorf("expected unknown dimensions, got %dx%d", img.Width, img.Height)
	}
}
