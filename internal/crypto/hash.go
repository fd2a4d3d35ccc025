package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHashFormat   = errors.New("invalid encoded hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	ErrInvalidHashParams   = errors.New("invalid argon2 parameters")
)

var b64 = base64.RawStdEncoding

// HashParams are the Argon2id cost settings. They travel inside every
// encoded hash, so verification always uses the cost a hash was made with.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams is the production cost: 64 MiB, 3 passes, 2 lanes.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p HashParams) validate() error {
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 || p.SaltLength == 0 || p.KeyLength == 0 {
		return ErrInvalidHashParams
	}
	return nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	params HashParams
	salt   []byte
	key    []byte
}

func (h phc) String() string {
	return "$argon2id$v=" + strconv.Itoa(argon2.Version) +
		"$m=" + strconv.FormatUint(uint64(h.params.Memory), 10) +
		",t=" + strconv.FormatUint(uint64(h.params.Iterations), 10) +
		",p=" + strconv.FormatUint(uint64(h.params.Parallelism), 10) +
		"$" + b64.EncodeToString(h.salt) +
		"$" + b64.EncodeToString(h.key)
}

func derive(password string, salt []byte, p HashParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// HashPasswordWithParams derives an Argon2id key under a fresh random salt and
// returns it in PHC form.
func HashPasswordWithParams(password string, params HashParams) (string, error) {
	if err := params.validate(); err != nil {
		return "", err
	}

	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	return phc{params: params, salt: salt, key: derive(password, salt, params)}.String(), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash is
// an error, not a mismatch. The key comparison is constant-time.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, derive(password, h.salt, h.params)) == 1, nil
}

func parsePHC(s string) (phc, error) {
	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return phc{}, ErrInvalidHashFormat
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return phc{}, ErrInvalidHashFormat
	}
	if v, err := strconv.Atoi(version); err != nil {
		return phc{}, ErrInvalidHashFormat
	} else if v != argon2.Version {
		return phc{}, ErrIncompatibleVersion
	}

	params, err := parseCost(fields[3])
	if err != nil {
		return phc{}, err
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return phc{}, ErrInvalidHashFormat
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return phc{}, ErrInvalidHashFormat
	}
	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(key))

	return phc{params: params, salt: salt, key: key}, nil
}

// parseCost reads "m=<kib>,t=<passes>,p=<lanes>"; all three are required.
func parseCost(s string) (HashParams, error) {
	var p HashParams
	seen := 0
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return HashParams{}, ErrInvalidHashFormat
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return HashParams{}, ErrInvalidHashFormat
			}
			p.Memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return HashParams{}, ErrInvalidHashFormat
			}
			p.Iterations = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return HashParams{}, ErrInvalidHashFormat
			}
			p.Parallelism = uint8(n)
		default:
			return HashParams{}, ErrInvalidHashFormat
		}
		seen++
	}
	if seen != 3 || p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return HashParams{}, ErrInvalidHashFormat
	}
	return p, nil
}
