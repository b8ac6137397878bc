package utils

import (
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 300

// RenderCodeImage renders a ticket code as a PNG QR image. Pure function,
// no state dependency.
func RenderCodeImage(code string) ([]byte, error) {
	return qrcode.Encode(code, qrcode.Medium, qrImageSize)
}
