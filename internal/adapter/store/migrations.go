package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the on-disk index format version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")

	keyHeader   = []byte("header")
	keyChecksum = []byte("checksum")
)

// Header describes a persisted index. It is stored as JSON in the meta bucket.
type Header struct {
	SchemaVersion int       `json:"schema_version"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	ConfigHash    string    `json:"config_hash"`
	Chunks        int       `json:"chunks"`
	Sources       int       `json:"sources"`
	BuiltAt       time.Time `json:"built_at"`
}

// newChecksum returns HMAC-SHA256 keyed by secret, or plain SHA-256 when
// secret is empty.
func newChecksum(secret []byte) hash.Hash {
	if len(secret) == 0 {
		return sha256.New()
	}
	return hmac.New(sha256.New, secret)
}

// computeChecksum digests the header followed by every entry in key order.
func computeChecksum(tx *bbolt.Tx, secret []byte) (string, error) {
	meta := tx.Bucket(bucketMeta)
	entries := tx.Bucket(bucketEntries)
	if meta == nil || entries == nil {
		return "", fmt.Errorf("missing bucket")
	}

	h := newChecksum(secret)
	h.Write(meta.Get(keyHeader))
	err := entries.ForEach(func(k, v []byte) error {
		h.Write([]byte{0})
		h.Write(k)
		h.Write([]byte{0})
		h.Write(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestPath is where the raw-file digest of the index at path is kept.
func DigestPath(path string) string {
	return path + ".sum"
}

// fileDigest streams the file at path through the checksum hash.
func fileDigest(path string, secret []byte) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := newChecksum(secret)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeDigest stores the digest of src in dst.
func writeDigest(src, dst string, secret []byte) error {
	sum, err := fileDigest(src, secret)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(sum+"\n"), 0600)
}

// verifyDigest compares the file at path with its detached digest. It reads
// the file as plain bytes, so a damaged page is caught before bbolt maps it.
func verifyDigest(path string, secret []byte) error {
	stored, err := os.ReadFile(DigestPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("digest file missing")
		}
		return err
	}
	got, err := fileDigest(path, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(got), []byte(strings.TrimSpace(string(stored)))) {
		return fmt.Errorf("file digest mismatch")
	}
	return nil
}

func verifyChecksum(tx *bbolt.Tx, secret []byte) error {
	stored := tx.Bucket(bucketMeta).Get(keyChecksum)
	if stored == nil {
		return fmt.Errorf("checksum missing")
	}
	got, err := computeChecksum(tx, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(got), stored) {
		return fmt.Errorf("checksum mismatch")
	}
	return nil
}

func readHeader(tx *bbolt.Tx) (Header, error) {
	var h Header
	meta := tx.Bucket(bucketMeta)
	if meta == nil {
		return h, fmt.Errorf("meta bucket missing")
	}
	data := meta.Get(keyHeader)
	if data == nil {
		return h, fmt.Errorf("header missing")
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// checkSchema rejects files written by another format version.
func checkSchema(h Header) error {
	switch {
	case h.SchemaVersion == 0:
		return fmt.Errorf("schema version missing")
	case h.SchemaVersion > CurrentSchemaVersion:
		return fmt.Errorf("index created by newer version (v%d > v%d)", h.SchemaVersion, CurrentSchemaVersion)
	case h.SchemaVersion < CurrentSchemaVersion:
		return fmt.Errorf("index schema v%d is outdated (current v%d), rebuild required", h.SchemaVersion, CurrentSchemaVersion)
	}
	return nil
}

// RebuildReason reports why an index built with configHash and model should
// be rebuilt for the current settings, or "" when it is up to date.
func RebuildReason(h Header, configHash, model string, dimension int) string {
	switch {
	case h.Model != model:
		return fmt.Sprintf("embedding model changed (%s -> %s)", h.Model, model)
	case h.Dimension != dimension:
		return fmt.Sprintf("embedding dimension changed (%d -> %d)", h.Dimension, dimension)
	case configHash != "" && h.ConfigHash != configHash:
		return "index configuration changed"
	}
	return ""
}
