package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/ports/adapter"
)

var _ adapter.NotificationVerifier = (*MercadoPagoSignatureVerifier)(nil)

// MercadoPagoSignatureVerifier checks the x-signature header (ts=<ts>,v1=<hex>).
// With an empty secret every delivery is accepted.
type MercadoPagoSignatureVerifier struct {
	secret string
}

func NewMercadoPagoSignatureVerifier(secret string) *MercadoPagoSignatureVerifier {
	return &MercadoPagoSignatureVerifier{secret: secret}
}

func (v *MercadoPagoSignatureVerifier) VerifyNotification(signatureHeader, requestID, dataID string) error {
	if v.secret == "" {
		return nil
	}
	ts, sig := parseMercadoPagoSignature(signatureHeader)
	if ts == "" || sig == "" {
		return fmt.Errorf("%w: malformed x-signature", domain.ErrUnauthorized)
	}
	expected := SignMercadoPagoManifest(v.secret, dataID, requestID, ts)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}

// SignMercadoPagoManifest returns the hex HMAC-SHA256 of the notification manifest.
// Alphanumeric data ids are lowercased before signing. Absent values are left out
// of the manifest.
func SignMercadoPagoManifest(secret, dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		fmt.Fprintf(&b, "id:%s;", strings.ToLower(dataID))
	}
	if requestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", requestID)
	}
	fmt.Fprintf(&b, "ts:%s;", ts)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}

func parseMercadoPagoSignature(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(val)
		case "v1":
			v1 = strings.TrimSpace(val)
		}
	}
	return ts, v1
}
