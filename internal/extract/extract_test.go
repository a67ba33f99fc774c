package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"study-backend/internal/gateway"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create docx entry: %v", err)
	}
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write docx entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close docx: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, "Photosynthesis", "Light reactions")

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "biology.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if text != "Photosynthesis\nLight reactions" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported mime type: application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

type stubFetcher struct {
	blob gateway.Blob
	err  error
}

func (s stubFetcher) Fetch(context.Context, string) (gateway.Blob, error) {
	return s.blob, s.err
}

func textSchema() *gateway.Schema {
	return gateway.Object(map[string]*gateway.Schema{"text": gateway.String("All text in the document")})
}

func TestExtractorExtractData(t *testing.T) {
	tests := []struct {
		name       string
		blob       gateway.Blob
		wantStatus gateway.ExtractStatus
		wantText   string
	}{
		{
			name:       "docx",
			blob:       gateway.Blob{Name: "notes.docx", ContentType: mimeDOCX, Data: buildDocx(t, "Mitosis")},
			wantStatus: gateway.ExtractSuccess,
			wantText:   "Mitosis",
		},
		{
			name:       "plain text",
			blob:       gateway.Blob{Name: "notes.txt", ContentType: "text/plain; charset=utf-8", Data: []byte("  Meiosis \n")},
			wantStatus: gateway.ExtractSuccess,
			wantText:   "Meiosis",
		},
		{
			name:       "image has no text layer",
			blob:       gateway.Blob{Name: "board.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
			wantStatus: gateway.ExtractFailure,
		},
		{
			name:       "blank document",
			blob:       gateway.Blob{Name: "blank.txt", ContentType: "text/plain", Data: []byte("   ")},
			wantStatus: gateway.ExtractFailure,
		},
		{
			name:       "corrupt pdf",
			blob:       gateway.Blob{Name: "broken.pdf", ContentType: "application/pdf", Data: []byte("not a pdf")},
			wantStatus: gateway.ExtractFailure,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExtractor(stubFetcher{blob: tt.blob})
			res, err := ex.ExtractData(context.Background(), "http://study.test/f", textSchema())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Fatalf("expected status %s, got %s (%s)", tt.wantStatus, res.Status, res.Details)
			}
			if got := gateway.StringField(res.Output, "text"); got != tt.wantText {
				t.Fatalf("expected text %q, got %q", tt.wantText, got)
			}
		})
	}
}

func TestExtractorPropagatesFetchErrors(t *testing.T) {
	ex := NewExtractor(stubFetcher{err: errors.New("store offline")})
	if _, err := ex.ExtractData(context.Background(), "http://study.test/f", textSchema()); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestDetect(t *testing.T) {
	docx := buildDocx(t, "x")
	tests := []struct {
		name     string
		mimeType string
		fileName string
		data     []byte
		want     string
	}{
		{name: "declared type wins", mimeType: "application/pdf", fileName: "notes.txt", want: mimePDF},
		{name: "parameters stripped", mimeType: "Text/Plain; charset=utf-8", want: mimeText},
		{name: "zip sniffed as docx", mimeType: "application/zip", fileName: "upload", data: docx, want: mimeDOCX},
		{name: "octet stream uses extension", mimeType: "application/octet-stream", fileName: "week1.MD", want: mimeMarkdown},
		{name: "missing type uses extension", fileName: "grades.csv", want: mimeCSV},
		{name: "unknown stays octet stream", fileName: "blob.bin", want: mimeOctet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect(tt.mimeType, tt.fileName, tt.data); got != tt.want {
				t.Fatalf("detect(%q, %q) = %q, want %q", tt.mimeType, tt.fileName, got, tt.want)
			}
		})
	}
}

func TestExtractTextNormalizesPlainText(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("\xef\xbb\xbfKrebs \xff cycle"), "", "notes.txt")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "Krebs � cycle" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractDocxKeepsTabs(t *testing.T) {
	doc := `<w:document xmlns:w="w"><w:body><w:p><w:r><w:t>Term</w:t><w:tab/><w:t>Definition</w:t></w:r></w:p></w:body></w:document>`
	text, err := docxText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("docx text: %v", err)
	}
	if text != "Term\tDefinition" {
		t.Fatalf("unexpected text %q", text)
	}
}
