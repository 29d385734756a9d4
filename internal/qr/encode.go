// Package qr renders payloads as scannable symbols and reads them back from
// raster images. Encoding uses low error correction and a fixed pixel width
// so a 3.5"x2" name card printed at 300 DPI stays reliably scannable.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/conferly/api/internal/payload"
)

// Size is the rendered symbol width in pixels.
const Size = 512

// Encoded is a rendered name-card symbol.
type Encoded struct {
	Content string // the exact text the symbol decodes to
	PNG     []byte
}

// DataURI returns the PNG as a data: URI suitable for embedding in a page.
func (e Encoded) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(e.PNG)
}

// Encode serializes the payload and renders it. If symbol generation fails
// (content too long for the symbol version), it retries once with the
// checksum stripped rather than surfacing a hard failure to the caller.
func Encode(p payload.Payload) (Encoded, error) {
	content, err := p.Encode()
	if err != nil {
		return Encoded{}, err
	}

	png, err := qrcode.Encode(content, qrcode.Low, Size)
	if err != nil {
		reduced := p
		reduced.Checksum = ""
		content, err = reduced.Encode()
		if err != nil {
			return Encoded{}, err
		}
		png, err = qrcode.Encode(content, qrcode.Low, Size)
		if err != nil {
			return Encoded{}, fmt.Errorf("rendering QR symbol: %w", err)
		}
	}

	return Encoded{Content: content, PNG: png}, nil
}

// EncodeRaw renders an arbitrary code string, used for legacy opaque codes.
func EncodeRaw(content string) (Encoded, error) {
	png, err := qrcode.Encode(content, qrcode.Low, Size)
	if err != nil {
		return Encoded{}, fmt.Errorf("rendering QR symbol: %w", err)
	}
	return Encoded{Content: content, PNG: png}, nil
}
