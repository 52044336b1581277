package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

const otpMin = 100000

// otpRange spans the 6-digit codes 100000-999999
const otpRange = 900000

// generateOTP produces a uniformly random 6-digit verification code
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// hashOTP returns the hex digest under which a code is stored.
// Codes are never persisted in cleartext, same as any other credential.
func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// verifyOTPCode compares a submitted code against the stored digest in
// constant time
func verifyOTPCode(storedHash, code string) bool {
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(hashOTP(code))) == 1
}
