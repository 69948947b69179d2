package session

import "math/rand"

// Join codes avoid glyphs that read alike on a phone screen (0/O, 1/I).
const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength      = 6
	maxCodeAttempts = 100
)

func randomCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeChars[rand.Intn(len(codeChars))]
	}
	return string(code)
}
