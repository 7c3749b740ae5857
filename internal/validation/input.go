// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount возвращается для нечисловой или отрицательной суммы.
var ErrInvalidAmount = errors.New("invalid amount")

// NormalizePhone приводит индийский мобильный номер к десяти цифрам.
// Допускаются пробелы, дефисы, префиксы +91, 91 и 0.
func NormalizePhone(phone string) (string, bool) {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		ch := rune(phone[i])
		switch {
		case unicode.IsDigit(ch):
			digits = append(digits, phone[i])
		case ch == ' ' || ch == '-' || (ch == '+' && len(digits) == 0):
		default:
			return "", false
		}
	}

	switch {
	case len(digits) == 12 && string(digits[:2]) == "91":
		digits = digits[2:]
	case len(digits) == 11 && digits[0] == '0':
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	return string(digits), true
}

// IsValidVehicleNumber проверяет номер автомобиля: латинские буквы, цифры,
// пробелы и дефисы, хотя бы одна цифра.
func IsValidVehicleNumber(number string) bool {
	number = strings.TrimSpace(number)
	if len(number) < 4 || len(number) > 15 {
		return false
	}

	hasDigit := false
	for _, ch := range number {
		switch {
		case ch >= '0' && ch <= '9':
			hasDigit = true
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch == ' ', ch == '-':
		default:
			return false
		}
	}
	return hasDigit
}

// ParseAmount разбирает неотрицательную денежную сумму. Пустая строка означает ноль.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, v)
	}
	return v, nil
}
