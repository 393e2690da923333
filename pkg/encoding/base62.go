package encoding

import (
	"github.com/eknkc/basex"
)

// base62Alphabet is the digit set used for Base62 encoding: decimal digits,
// then lowercase letters, then uppercase letters.
const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// base62 is the shared Base62 encoder. It is safe for concurrent use.
var base62 = func() *basex.Encoding {
	encoding, err := basex.NewEncoding(base62Alphabet)
	if err != nil {
		panic("unable to initialize Base62 encoder")
	}
	return encoding
}()

// EncodeBase62 encodes a byte slice using Base62.
func EncodeBase62(value []byte) string {
	return base62.Encode(value)
}

// DecodeBase62 decodes a Base62-encoded string.
func DecodeBase62(value string) ([]byte, error) {
	return base62.Decode(value)
}
