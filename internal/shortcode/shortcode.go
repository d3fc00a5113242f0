// Package shortcode генерирует и проверяет короткие коды ссылок,
// а также решает, безопасно ли перенаправлять на целевой URL.
package shortcode

import (
	"crypto/rand"
	"errors"
	"math/big"
	"net/url"
	"regexp"
	"strings"
)

const (
	// Length длина сгенерированного кода
	Length = 6
	// MinLength и MaxLength границы допустимой длины кода (включительно)
	MinLength = 6
	MaxLength = 8

	charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrInvalidURL   = errors.New("invalid URL format")
	ErrUnsafeScheme = errors.New("URL must use http or https")
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Generator источник новых кодов. Подменяется в тестах.
type Generator func() (string, error)

// Validate возвращает true, если код состоит из 6-8 латинских букв и цифр
func Validate(code string) bool {
	return codePattern.MatchString(code)
}

// Generate возвращает случайный код длиной Length из алфавита [A-Za-z0-9]
func Generate() (string, error) {
	result := make([]byte, Length)
	max := big.NewInt(int64(len(charset)))
	for i := range result {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// ValidateTarget проверяет, что raw это абсолютный URL со схемой http или https
func ValidateTarget(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return ErrInvalidURL
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}

	if u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// IsSafeTarget true, если на raw можно перенаправлять посетителя
func IsSafeTarget(raw string) bool {
	return ValidateTarget(raw) == nil
}
