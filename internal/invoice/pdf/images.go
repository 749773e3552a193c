package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// normalizePNG re-encodes any decodable image as 8-bit non-interlaced
// RGBA PNG, the one form fpdf embeds without surprises.
func normalizePNG(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// registerFile loads an image file into the document under its path. It
// returns false, leaving the document usable, when the file cannot be used.
func registerFile(pdf *fpdf.Fpdf, path string) bool {
	if path == "" {
		return false
	}
	if info := pdf.GetImageInfo(path); info != nil {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return registerBytes(pdf, path, data)
}

func registerBytes(pdf *fpdf.Fpdf, name string, data []byte) bool {
	normalized, err := normalizePNG(data)
	if err != nil {
		return false
	}
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(normalized))
	if !pdf.Ok() {
		pdf.ClearError()
		return false
	}
	return true
}

// registerQR encodes content as a QR code image named "qr".
func registerQR(pdf *fpdf.Fpdf, content string) (string, error) {
	data, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("pdf: encode qr: %w", err)
	}
	const name = "qr-checkout"
	if !registerBytes(pdf, name, data) {
		return "", errors.New("pdf: embed qr")
	}
	return name, nil
}
