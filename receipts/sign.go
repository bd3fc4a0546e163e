package receipts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"trendaryo/apperr"
)

// Signer produces and checks the order references printed on receipts.
// A reference is orderID|orderNumber|signature.
type Signer struct {
	Secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{Secret: []byte(secret)}
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.Secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *Signer) Ref(orderID, number string) string {
	data := orderID + "|" + number
	return data + "|" + s.sign(data)
}

// Verify returns the order id and number carried by a valid reference.
func (s *Signer) Verify(ref string) (orderID, number string, err error) {
	parts := strings.Split(ref, "|")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", apperr.Validation("malformed receipt reference")
	}
	want := s.sign(parts[0] + "|" + parts[1])
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", "", apperr.Validation("receipt reference signature is invalid")
	}
	return parts[0], parts[1], nil
}
