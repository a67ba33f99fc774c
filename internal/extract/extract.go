package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePPTX     = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeText     = "text/plain"
	mimeMarkdown = "text/markdown"
	mimeCSV      = "text/csv"
	mimeZip      = "application/zip"
	mimeOctet    = "application/octet-stream"
)

// ErrUnsupported is returned for payloads without a local text extractor.
var ErrUnsupported = errors.New("unsupported mime type")

type parser func(data []byte) (string, error)

var parsers = map[string]parser{
	mimePDF:      parsePDF,
	mimeDOCX:     parseDOCX,
	mimeText:     parseText,
	mimeMarkdown: parseText,
	mimeCSV:      parseText,
}

// ooxmlParts maps the part that identifies an Office Open XML package to its MIME type.
var ooxmlParts = map[string]string{
	"word/document.xml":    mimeDOCX,
	"xl/workbook.xml":      mimeXLSX,
	"ppt/presentation.xml": mimePPTX,
}

var extensionTypes = map[string]string{
	".pdf":  mimePDF,
	".docx": mimeDOCX,
	".xlsx": mimeXLSX,
	".pptx": mimePPTX,
	".txt":  mimeText,
	".md":   mimeMarkdown,
	".csv":  mimeCSV,
}

// ExtractTextFromBytes extracts text from an in-memory payload. The declared
// MIME type wins unless it is generic, in which case the zip layout and then
// the file extension decide.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind := detect(mimeType, fileName, data)
	parse, ok := parsers[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
	return parse(data)
}

func detect(mimeType, fileName string, data []byte) string {
	kind, _, _ := strings.Cut(mimeType, ";")
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case mimeZip:
		if mapped := ooxmlType(data); mapped != "" {
			return mapped
		}
		if ext := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; strings.HasPrefix(ext, "application/vnd.openxmlformats") {
			return ext
		}
	case mimeOctet, "":
		if ext := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ext != "" {
			return ext
		}
		if kind == "" {
			return mimeOctet
		}
	}
	return kind
}

func ooxmlType(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if mapped, ok := ooxmlParts[strings.ReplaceAll(f.Name, "\\", "/")]; ok {
			return mapped
		}
	}
	return ""
}

func parseText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "�"), nil
}

func parsePDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func parseDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", errors.New("docx has no word/document.xml")
}

// docxText concatenates character data, breaking lines at paragraph and
// explicit break elements.
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
