package securestore

import (
	"bytes"
	"encoding/base64"
)

// EncodeBlob frames salt|nonce|ciphertext and encodes it as padded base64.
func EncodeBlob(salt, nonce, ciphertext []byte) []byte {
	raw := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	raw = append(raw, salt...)
	raw = append(raw, nonce...)
	raw = append(raw, ciphertext...)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out
}

// DecodeBlob splits an encoded blob at its fixed offsets. It never looks at
// what the ciphertext holds.
func DecodeBlob(blob []byte) (salt, nonce, ciphertext []byte, err error) {
	text := bytes.TrimSpace(blob)
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(raw, text)
	if err != nil {
		return nil, nil, nil, ErrCorruptKeystore
	}
	raw = raw[:n]
	if len(raw) < HeaderSize {
		return nil, nil, nil, ErrCorruptKeystore
	}
	salt = raw[:SaltSize:SaltSize]
	nonce = raw[SaltSize:HeaderSize:HeaderSize]
	ciphertext = raw[HeaderSize:]
	return salt, nonce, ciphertext, nil
}
