package registration

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"saazebharat/internal/model"

	qrcode "github.com/skip2/go-qrcode"
)

const qridAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewQRID returns a ticket identifier of the form SEB- followed by nine
// characters from [A-Z0-9].
func NewQRID() (string, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate ticket id: %w", err)
	}
	for i, b := range buf {
		buf[i] = qridAlphabet[int(b)%len(qridAlphabet)]
	}
	return "SEB-" + string(buf), nil
}

// TicketPayload binds a ticket id to its category with a truncated
// HMAC-SHA256 tag, so a scanned code cannot be forged or re-labeled.
func TicketPayload(qrID string, category model.Category, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(qrID + "|" + string(category)))
	tag := hex.EncodeToString(mac.Sum(nil)[:8])
	return qrID + "|" + string(category) + "|" + tag
}

// QRImageDataURL renders the payload as a PNG QR code packaged as a data URL,
// suitable for inlining in an HTML email.
func QRImageDataURL(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("render ticket qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
