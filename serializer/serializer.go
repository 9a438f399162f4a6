package serializer

import "github.com/mr-tron/base58"

// Base58Encode encodes the byte array to a base58 string.
func Base58Encode(input []byte) []byte {
	return []byte(base58.Encode(input))
}

// Base58Decode decodes the base58 string to a byte array.
func Base58Decode(input []byte) ([]byte, error) {
	decoded, err := base58.Decode(string(input))
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
