// Package checksum computes the SHA-256 content digest recorded for every
// firmware release. Devices recompute it after download and refuse to flash
// on mismatch.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrUnreadable = errors.New("binary unreadable while hashing")

// chunkSize bounds how much of the binary sits in memory at once.
const chunkSize = 32 * 1024

// Reader hashes r to completion and returns the hex digest.
func Reader(r io.Reader) (string, error) {
	const fn = "checksum:Reader"
	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%s:%w:%w", fn, ErrUnreadable, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File hashes the file at path.
func File(path string) (string, error) {
	const fn = "checksum:File"
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%s:%w:%w", fn, ErrUnreadable, err)
	}
	defer f.Close()
	return Reader(f)
}
