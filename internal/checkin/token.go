// Package checkin implements pre-check-in: the patient fills demographic,
// health and consent data ahead of the visit, uploads documents and
// receives a QR code that the front desk scans to queue them.
package checkin

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrTokenInvalid = errors.New("checkin: qr token invalid")
	ErrTokenExpired = errors.New("checkin: qr token expired")
)

// QRClaims is what the QR code carries, signed so the front desk scan can
// trust it without a lookup.
type QRClaims struct {
	ClinicID      string `json:"clinic_id"`
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Priority      string `json:"priority,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies QR tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer. ttl <= 0 defaults to two hours.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a QR token for a completed pre-check-in.
func (t *TokenIssuer) Issue(claims QRClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    "clinigo",
		Subject:   claims.PatientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("checkin: sign qr token: %w", err)
	}
	return signed, nil
}

// Verify parses a scanned QR token.
func (t *TokenIssuer) Verify(raw string) (*QRClaims, error) {
	var claims QRClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
