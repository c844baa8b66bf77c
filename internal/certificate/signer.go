package certificate

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer produces the tamper-evident proof on a certificate: an HS256 JWT
// over the financial terms. Lenders verifying against the platform's key
// can detect any alteration after issuance.
type Signer struct {
	key []byte
}

// NewSigner builds a signer from the configured key.
func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

// Sign serializes the certificate's immutable terms into a signed token.
func (s *Signer) Sign(cert *PaymentCertificate) (string, error) {
	claims := jwt.MapClaims{
		"jti": cert.ID.String(),
		"sub": cert.AccountID.String(),
		"iat": cert.IssuedAt.Unix(),
		"exp": cert.ExpiresAt.Unix(),
		"guarantee_amount": cert.GuaranteeAmount.String(),
		"guarantor":        cert.Guarantor,
		"loan_to_value":    cert.LoanToValue.String(),
		"suggested_rate":   cert.SuggestedRate.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign certificate: %w", err)
	}
	return signed, nil
}

// Verify parses a proof and confirms the signature and expiry.
func (s *Signer) Verify(proof string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(proof, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("verify certificate proof: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return claims, nil
}
