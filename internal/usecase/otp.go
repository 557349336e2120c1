package usecase

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
)

// otpPattern is what a well-formed one-time code looks like. Anything else
// is rejected before a store lookup happens.
var otpPattern = regexp.MustCompile(`^\d{6}$`)

// generateOTP returns a 6-digit numeric code drawn uniformly from
// [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
