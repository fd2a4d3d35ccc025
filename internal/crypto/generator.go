package crypto

import (
	"crypto/rand"
	"math/big"
)

// BootstrapPasswordLength is the length of generated administrator passwords.
const BootstrapPasswordLength = 24

var bootstrapClasses = []string{
	"ABCDEFGHJKLMNPQRSTUVWXYZ",
	"abcdefghijkmnopqrstuvwxyz",
	"23456789",
}

// GenerateBootstrapPassword returns a random alphanumeric password with at
// least one upper-case letter, lower-case letter and digit. Look-alike
// characters (0/O, 1/l/I) are left out.
func GenerateBootstrapPassword() (string, error) {
	var pool string
	for _, c := range bootstrapClasses {
		pool += c
	}

	out := make([]byte, BootstrapPasswordLength)
	for i := range out {
		charset := pool
		if i < len(bootstrapClasses) {
			charset = bootstrapClasses[i]
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}

	// Fisher-Yates so the guaranteed characters are not at fixed positions.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}

	return string(out), nil
}
