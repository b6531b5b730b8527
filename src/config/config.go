package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"
const DATE_FORMAT = "2006-01-02"

var API_ENV = os.Getenv("API_ENV")

// EncryptionKey returns the process-wide 32-byte settings key.
// ENCRYPTION_KEY holds 64 hex characters. A missing or malformed key
// returns nil; the vault then treats every stored value as plaintext.
func EncryptionKey() []byte {
	raw := os.Getenv("ENCRYPTION_KEY")
	if len(raw) != 64 {
		return nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil
	}
	return key
}

// CheckInHost is the guest-facing online check-in origin.
func CheckInHost() string {
	host := os.Getenv("CHECKIN_HOST")
	if host == "" {
		host = "https://app.lobbypms.com/checkinonline"
	}
	return host
}

func MessagingVerifyToken() string {
	return os.Getenv("WHATSAPP_WEBHOOK_VERIFY_TOKEN")
}
