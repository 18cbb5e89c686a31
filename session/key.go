package session

import (
	"crypto/rand"
	"encoding/hex"
)

const KeySize = 64

// Key is the secret a peer presents to reclaim an abandoned session.
type Key [KeySize]byte

var EmptyKey Key

func NewKey() Key {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		panic("gsession: generate session key: " + err.Error())
	}
	return k
}

func (k Key) IsEmpty() bool {
	return k == EmptyKey
}

// String shows only a prefix so keys do not end up in logs whole.
func (k Key) String() string {
	return hex.EncodeToString(k[:4]) + "..."
}
