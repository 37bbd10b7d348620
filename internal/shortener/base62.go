package shortener

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	base     = uint64(len(alphabet))
)

// Encode converts a counter value to its Base62 short code, most significant
// symbol first. Encode(0) is the first alphabet symbol.
func Encode(id uint64) string {
	if id == 0 {
		return string(alphabet[0])
	}

	var digits []byte
	for id > 0 {
		digits = append(digits, alphabet[id%base])
		id /= base
	}

	// Digits were collected least significant first.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	return string(digits)
}
