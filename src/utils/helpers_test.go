package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey()
	sealed, err := EncryptSecret(key, "sk_live_verysecret")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(sealed, ":"))
	assert.NotContains(t, sealed, "verysecret")

	assert.Equal(t, "sk_live_verysecret", DecryptSecret(key, sealed))
}

func TestEncryptSecretEmptyPassthrough(t *testing.T) {
	sealed, err := EncryptSecret(testKey(), "")
	require.NoError(t, err)
	assert.Empty(t, sealed)
}

func TestEncryptSecretRejectsShortKey(t *testing.T) {
	_, err := EncryptSecret([]byte("short"), "value")
	assert.Error(t, err)
}

func TestDecryptSecretPlaintextPassthrough(t *testing.T) {
	// settings written before encryption was introduced
	assert.Equal(t, "plain-api-key", DecryptSecret(testKey(), "plain-api-key"))
}

func TestDecryptSecretWrongKeyKeepsCiphertext(t *testing.T) {
	sealed, err := EncryptSecret(testKey(), "secret-value")
	require.NoError(t, err)

	other := []byte("ffffffffffffffffffffffffffffffff")
	out := DecryptSecret(other, sealed)
	assert.Equal(t, sealed, out)
	assert.True(t, LooksEncrypted(out))
}

func TestParseLocalDate(t *testing.T) {
	d, err := ParseLocalDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), d)

	// time suffixes are ignored, the PMS reports calendar dates
	d, err = ParseLocalDate("2026-03-15T14:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseLocalDate("")
	assert.Error(t, err)
	_, err = ParseLocalDate("15/03/2026")
	assert.Error(t, err)
}

func TestGuestLanguage(t *testing.T) {
	assert.Equal(t, "es", GuestLanguage("CO", "", ""))
	assert.Equal(t, "de", GuestLanguage("de", "", ""))
	assert.Equal(t, "pt", GuestLanguage("", "+5511987654321", ""))
	assert.Equal(t, "es", GuestLanguage("", "573001234567", ""))

	// nationality wins over phone prefix
	assert.Equal(t, "de", GuestLanguage("DE", "+573001234567", "es"))

	assert.Equal(t, "es", GuestLanguage("", "", "es"))
	assert.Equal(t, "en", GuestLanguage("", "", ""))
	assert.Equal(t, "es", GuestLanguage("XX", "+999123", "es"))
}
