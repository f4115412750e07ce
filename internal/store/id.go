package store

import (
	"crypto/rand"
	"fmt"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	fileIDPrefix   = "fl"
	fileIDLength   = 10
	idMaxAttempts  = 20
)

// GenerateFileID returns a new file id using the fl- prefix. Ids are random,
// collision checked through the provided exists function, and never reused:
// a deleted id stays dead because the row is gone and fresh draws are random.
func GenerateFileID(exists func(string) (bool, error)) (string, error) {
	for i := 0; i < idMaxAttempts; i++ {
		hash, err := randomBase36(fileIDLength)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", fileIDPrefix, hash)
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}
