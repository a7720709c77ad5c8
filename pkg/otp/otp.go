// Package otp stores one-time codes keyed by phone number with an expiry.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var ErrInvalidLength = errors.New("otp length must be between 4 and 10")

// Store keeps at most one pending code per phone.
type Store interface {
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	// Verify consumes the code on success. A missing or expired code is not an error.
	Verify(ctx context.Context, phone, code string) (bool, error)
}

// Generate returns a random numeric code of the given length.
func Generate(length int) (string, error) {
	if length < 4 || length > 10 {
		return "", ErrInvalidLength
	}
	buf := make([]byte, length)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

func key(phone string) string {
	return "otp:" + phone
}
