package qr

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoSymbol is returned when no QR symbol can be located in an image.
// In camera mode this is the expected outcome for most frames and must not
// be surfaced; in upload mode it is a user-facing error.
var ErrNoSymbol = errors.New("no QR symbol found")

// DecodeImage locates a QR symbol in img and returns its raw text.
func DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("preparing bitmap: %w", err)
	}

	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return "", ErrNoSymbol
		}
		return "", fmt.Errorf("decoding QR symbol: %w", err)
	}
	return result.GetText(), nil
}

// DecodeReader decodes a single uploaded image (PNG or JPEG) from r.
func DecodeReader(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	return DecodeImage(img)
}
