package catalog

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// partialHashChunk is the amount read from each end of a file for the
// partial-file identity hash: hash(file_size ‖ first_64KiB ‖ last_64KiB).
// xxhash.Sum64 is the hash family; the two 64KiB windows plus the size catch
// truncation and in-place edits without reading the whole file.
const partialHashChunk = 64 * 1024

// PartialFileHash identifies a local file by its size plus its first and last
// 64KiB, avoiding a full read for large audio files while still detecting
// truncated or corrupted downloads.
func PartialFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()

	h := xxhash.New()
	var sizeBuf [8]byte
	for i := range sizeBuf {
		sizeBuf[i] = byte(size >> (8 * i))
	}
	h.Write(sizeBuf[:])

	head := make([]byte, partialHashChunk)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	h.Write(head[:n])

	if size > partialHashChunk {
		tailStart := size - partialHashChunk
		if tailStart < int64(n) {
			tailStart = int64(n)
		}
		if _, err := f.Seek(tailStart, io.SeekStart); err != nil {
			return "", err
		}
		tail, err := io.ReadAll(f)
		if err != nil {
			return "", err
		}
		h.Write(tail)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
