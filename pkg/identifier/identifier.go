package identifier

import (
	"github.com/depscout/depscout/pkg/encoding"
	"github.com/depscout/depscout/pkg/random"
)

const (
	// PrefixScan is the prefix used for scan run identifiers.
	PrefixScan = "scan_"
)

// New generates a new collision-resistant identifier with the specified
// prefix.
func New(prefix string) (string, error) {
	// Create the random value.
	value, err := random.New(random.CollisionResistantLength)
	if err != nil {
		return "", err
	}

	// Encode the random value.
	return prefix + encoding.EncodeBase62(value), nil
}
