package vision

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// ImageData is one source page ready for a provider call: the raw bytes and
// the MIME type detected from them.
type ImageData struct {
	Bytes []byte
	MIME  string
}

// DetectMIME sniffs the content type from the byte stream's magic numbers.
// File extensions are never consulted; providers that enforce content types
// get what the bytes actually are.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// ReadImage loads a source file and tags it with its detected MIME type.
func ReadImage(path string) (ImageData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageData{}, fmt.Errorf("failed to read image: %w", err)
	}
	return NewImageData(data), nil
}

// NewImageData wraps already-loaded bytes (e.g. a rasterized PDF page)
// with their detected MIME type.
func NewImageData(data []byte) ImageData {
	return ImageData{Bytes: data, MIME: DetectMIME(data)}
}

// Base64 returns the standard-encoded image payload.
func (d ImageData) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Bytes)
}

// DataURL renders the image as an RFC 2397 data URL for OpenAI-style
// image_url content parts.
func (d ImageData) DataURL() string {
	return "data:" + d.MIME + ";base64," + d.Base64()
}
