/*
Package randx generates random identifiers: Base62 guest nicknames from
crypto/rand and UUIDs for connections and stored media objects.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for generated nicknames.
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// NicknamePrefix starts every generated nickname.
	NicknamePrefix = "User_"

	// NicknameRandomLength is the number of Base62 characters after the prefix.
	NicknameRandomLength = 6
)

var base62Len = big.NewInt(int64(len(Base62Chars)))

// Base62 returns n characters drawn uniformly from Base62Chars.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// UserNickname returns a guest nickname such as "User_a9ZQ3k".
func UserNickname() (string, error) {
	suffix, err := Base62(NicknameRandomLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate nickname: %w", err)
	}
	return NicknamePrefix + suffix, nil
}

// ID returns a UUID v4 string.
func ID() string {
	return uuid.New().String()
}
