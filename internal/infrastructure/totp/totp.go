// Package totp wraps pquerna/otp for authenticator-app second factors.
package totp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	period = 30
	qrSize = 200
)

// Enrollment is a freshly generated secret plus what the user needs to add it
// to an authenticator app.
type Enrollment struct {
	Secret    string
	URL       string
	QRDataURI string
}

// Service generates and validates TOTP codes.
type Service struct {
	issuer string
	now    func() time.Time
}

func NewService(issuer string) *Service {
	if strings.TrimSpace(issuer) == "" {
		issuer = "Creator Studio"
	}
	return &Service{issuer: issuer, now: time.Now}
}

// Generate creates a new secret for accountName.
func (s *Service) Generate(accountName string) (*Enrollment, error) {
	if strings.TrimSpace(accountName) == "" {
		return nil, fmt.Errorf("account name cannot be empty")
	}
	if strings.Contains(accountName, ":") {
		return nil, fmt.Errorf("account name cannot contain a colon")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return &Enrollment{
		Secret:    key.Secret(),
		URL:       key.URL(),
		QRDataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate reports whether code matches secret, allowing one period of drift.
func (s *Service) Validate(secret, code string) bool {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(code) == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
