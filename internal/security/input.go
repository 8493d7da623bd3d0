// Package security screens inbound chat text and verifies webhook signatures.
package security

import (
	"errors"
	"unicode"
)

var (
	ErrInputTooLarge       = errors.New("input exceeds maximum size")
	ErrNullByteDetected    = errors.New("null byte detected in input")
	ErrHighWhitespaceRatio = errors.New("suspicious whitespace ratio")
	ErrRepetitiveContent   = errors.New("excessive repetition detected")
	ErrSecretDetected      = errors.New("message looks like it carries a credential")
)

// InputValidator rejects chat messages that should never reach the ledger.
// A message rejected here gets no reply.
type InputValidator struct {
	MaxSize            int64
	MaxWhitespaceRatio float64
	// MinRatioLength is the length below which the whitespace ratio is not checked
	MinRatioLength int
	MaxRepetition  int
	// Secrets, when set, blocks messages containing credential-shaped tokens
	Secrets *SecretScanner
}

// NewInputValidator returns limits sized for chat messages
func NewInputValidator() *InputValidator {
	return &InputValidator{
		MaxSize:            4 * 1024,
		MaxWhitespaceRatio: 0.8,
		MinRatioLength:     32,
		MaxRepetition:      64,
		Secrets:            NewSecretScanner(),
	}
}

func (v *InputValidator) Validate(input string) error {
	if int64(len(input)) > v.MaxSize {
		return ErrInputTooLarge
	}

	for i := 0; i < len(input); i++ {
		if input[i] == 0 {
			return ErrNullByteDetected
		}
	}

	if v.MaxWhitespaceRatio > 0 && len(input) >= v.MinRatioLength && len(input) > 0 {
		spaces := 0
		for _, r := range input {
			if unicode.IsSpace(r) {
				spaces++
			}
		}
		if float64(spaces)/float64(len(input)) > v.MaxWhitespaceRatio {
			return ErrHighWhitespaceRatio
		}
	}

	if v.MaxRepetition > 0 && hasExcessiveRepetition(input, v.MaxRepetition) {
		return ErrRepetitiveContent
	}

	if v.Secrets != nil && v.Secrets.HasSecrets(input) {
		return ErrSecretDetected
	}
	return nil
}

func hasExcessiveRepetition(input string, maxLen int) bool {
	if len(input) <= maxLen {
		return false
	}

	runes := []rune(input)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > maxLen {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
