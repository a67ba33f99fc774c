package object

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"study-backend/internal/shared/util"
)

// sniffLen matches the window http.DetectContentType inspects.
const sniffLen = 512

// NewKey builds a storage key of the form <namespace hash>/<random>_<file name>.
// Uploads from the same owner share a directory while never colliding.
func NewKey(namespace, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return path.Join(util.NamespaceKey(namespace), id+"_"+name), nil
}

// CheckKey rejects keys that are empty, absolute or climb out of the store root.
func CheckKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// Sniff reads the head of r to detect its MIME type and returns a reader that
// replays the full stream.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
