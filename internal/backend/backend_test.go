package backend

import (
	"errors"
	"fmt"
	"sort"
	"testing"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		filename string
		want     Format
	}{
		{"report.docx", FormatDocx},
		{"page.HTML", FormatHTML},
		{"notes.md", FormatMarkdown},
		{"data.csv", FormatCSV},
		{"book.epub", FormatEPUB},
		{"deck.pptx", FormatPPTX},
		{"sheet.xlsx", FormatXLSX},
		{"photo.JPEG", FormatImage},
		{"bundle.zip", FormatArchive},
		{"bundle.tar", FormatArchive},
		{"bundle.tar.xz", FormatArchive},
		{"scan.pdf", FormatPDF},
		{"plain.txt", FormatText},
	}
	for _, c := range cases {
		got, err := Detect(c.filename)
		if err != nil {
			t.Errorf("Detect(%q): unexpected error %v", c.filename, err)
			continue
		}
		if got != c.want {
			t.Errorf("Detect(%q) = %q, want %q", c.filename, got, c.want)
		}
	}
}

func TestDetect_Unsupported(t *testing.T) {
	_, err := Detect("program.exe")
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	class, ok := Classify(err)
	if !ok || class != ClassUnsupportedFormat {
		t.Errorf("expected unsupported_format class, got %q (%v)", class, ok)
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("a.docx") {
		t.Error("docx should be supported")
	}
	if IsSupported("a.mobi") {
		t.Error("mobi should not be supported")
	}
}

func TestSupportedExtensions_Sorted(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) == 0 {
		t.Fatal("expected some extensions")
	}
	if !sort.StringsAreSorted(exts) {
		t.Errorf("extensions not sorted: %v", exts)
	}
}

func TestConvert_TextRoundTrip(t *testing.T) {
	res, err := Convert([]byte("hello\n\nworld"), "greeting.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Format != FormatText {
		t.Errorf("expected text format, got %q", res.Format)
	}
	if res.Direct {
		t.Error("text conversion is not a bypass format")
	}
	if res.Doc == nil || res.Doc.NodeCount() != 2 {
		t.Errorf("expected tree with 2 nodes")
	}
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	_, err := Convert([]byte("x"), "binary.bin")
	if err == nil {
		t.Fatal("expected error")
	}
	class, _ := Classify(err)
	if class != ClassUnsupportedFormat {
		t.Errorf("expected unsupported_format, got %q", class)
	}
}

func TestConvertError_Message(t *testing.T) {
	err := Malformed(FormatXLSX, "sheet1.xml", errors.New("bad xml"))
	msg := err.Error()
	want := "malformed_source [xlsx] sheet1.xml: bad xml"
	if msg != want {
		t.Errorf("expected %q, got %q", want, msg)
	}
}

func TestConvertError_UnwrapAndClassify(t *testing.T) {
	inner := errors.New("root cause")
	err := fmt.Errorf("wrapped: %w", ResourceFailure(FormatEPUB, "img cover.png", inner))

	class, ok := Classify(err)
	if !ok || class != ClassResourceResolution {
		t.Errorf("expected resource_resolution through wrapping, got %q (%v)", class, ok)
	}
	if !errors.Is(err, inner) {
		t.Error("expected inner error to be reachable")
	}
}

func TestClassify_UnclassifiedError(t *testing.T) {
	_, ok := Classify(errors.New("plain"))
	if ok {
		t.Error("plain errors must not classify")
	}
}
