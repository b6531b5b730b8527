package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const gcmIVSize = 16

// EncryptSecret seals a settings field with AES-256-GCM and encodes it as
// hex(iv):hex(authTag):hex(ciphertext). Empty values pass through so blank
// optional fields are not turned into ciphertext.
func EncryptSecret(key []byte, value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if len(key) != 32 {
		return "", errors.New("encryption key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return "", err
	}
	iv := make([]byte, gcmIVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, iv, []byte(value), nil)
	tagSize := gcm.Overhead()
	ciphertext := sealed[:len(sealed)-tagSize]
	authTag := sealed[len(sealed)-tagSize:]
	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(authTag),
		hex.EncodeToString(ciphertext),
	), nil
}

// DecryptSecret reverses EncryptSecret. A value without two ":" separators
// is returned unchanged: settings written before encryption was introduced
// are still plaintext. Any decryption failure also returns the value
// unchanged; callers detect an unusable key by the ":" still being there.
func DecryptSecret(key []byte, value string) string {
	if value == "" {
		return value
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return value
	}
	if len(key) != 32 {
		return value
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != gcmIVSize {
		return value
	}
	authTag, err := hex.DecodeString(parts[1])
	if err != nil {
		return value
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return value
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return value
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return value
	}
	plaintext, err := gcm.Open(nil, iv, append(ciphertext, authTag...), nil)
	if err != nil {
		return value
	}
	return string(plaintext)
}

// LooksEncrypted reports whether a resolved value still carries the
// iv:authTag:ciphertext shape, i.e. decryption did not happen.
func LooksEncrypted(value string) bool {
	return strings.Count(value, ":") == 2
}

// ParseLocalDate reads a date-only string (optionally with a time suffix)
// as a UTC midnight-anchored instant. The PMS reports calendar dates, not
// instants, so the timezone of the raw string is deliberately ignored.
func ParseLocalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty date string")
	}
	datePart := value
	if idx := strings.IndexByte(value, 'T'); idx > 0 {
		datePart = value[:idx]
	}
	t, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q: %w", value, err)
	}
	return t, nil
}

// nationalityLanguages maps guest nationality (ISO 3166 alpha-2) to the
// 2-letter template language.
var nationalityLanguages = map[string]string{
	"CO": "es", "ES": "es", "MX": "es", "AR": "es", "CL": "es", "PE": "es",
	"EC": "es", "VE": "es", "BO": "es", "UY": "es", "PY": "es", "PA": "es",
	"CR": "es", "GT": "es", "HN": "es", "SV": "es", "NI": "es", "DO": "es",
	"CU": "es",
	"BR": "pt", "PT": "pt",
	"DE": "de", "AT": "de", "CH": "de",
	"FR": "fr", "BE": "fr",
	"IT": "it",
	"NL": "nl",
}

// phonePrefixLanguages maps E.164 country prefixes to a language guess,
// longest prefix first.
var phonePrefixLanguages = []struct {
	Prefix   string
	Language string
}{
	{"+57", "es"}, {"+52", "es"}, {"+54", "es"}, {"+56", "es"}, {"+51", "es"},
	{"+593", "es"}, {"+58", "es"}, {"+591", "es"}, {"+598", "es"}, {"+595", "es"},
	{"+506", "es"}, {"+507", "es"}, {"+502", "es"}, {"+34", "es"},
	{"+55", "pt"}, {"+351", "pt"},
	{"+49", "de"}, {"+43", "de"}, {"+41", "de"},
	{"+33", "fr"}, {"+32", "fr"},
	{"+39", "it"},
	{"+31", "nl"},
}

// GuestLanguage picks the template language: nationality first, then the
// phone country prefix, then the tenant default, then English.
func GuestLanguage(nationality, phone, tenantDefault string) string {
	if nationality != "" {
		if lang, ok := nationalityLanguages[strings.ToUpper(nationality)]; ok {
			return lang
		}
	}
	if phone != "" {
		normalized := phone
		if !strings.HasPrefix(normalized, "+") {
			normalized = "+" + strings.TrimLeft(normalized, "0")
		}
		for _, entry := range phonePrefixLanguages {
			if strings.HasPrefix(normalized, entry.Prefix) {
				return entry.Language
			}
		}
	}
	if tenantDefault != "" {
		return tenantDefault
	}
	return "en"
}
