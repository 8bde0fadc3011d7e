package utils

import (
	"regexp"
	"strings"
)

// PIX key types accepted on the deposit form.
const (
	KeyTypeCPF       = "cpf"
	KeyTypeEmail     = "email"
	KeyTypeTelefone  = "telefone"
	KeyTypeAleatoria = "aleatoria"
)

var (
	nonDigits = regexp.MustCompile(`\D`)
	emailRx   = regexp.MustCompile(`.+@.+\..+`)
)

// IsCPFValid reports whether cpf (digits, optionally masked as
// 000.000.000-00) passes the two-stage modulo-11 checksum. Sequences of a
// single repeated digit are rejected even though they pass the checksum.
func IsCPFValid(cpf string) bool {
	digits := nonDigits.ReplaceAllString(cpf, "")
	if len(digits) != 11 {
		return false
	}

	repeated := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}

	if checkDigit(digits, 9) != int(digits[9]-'0') {
		return false
	}
	return checkDigit(digits, 10) == int(digits[10]-'0')
}

// checkDigit computes the verifier digit over the first n digits, with
// weights n+1 down to 2.
func checkDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	r := (sum * 10) % 11
	if r == 10 || r == 11 {
		r = 0
	}
	return r
}

func IsEmailValid(v string) bool {
	return emailRx.MatchString(v)
}

// IsPhoneValid expects a Brazilian mobile number: 11 digits after stripping
// the mask (DDD + 9 digits).
func IsPhoneValid(v string) bool {
	return len(nonDigits.ReplaceAllString(v, "")) == 11
}

// IsKeyValid checks a declared PIX key against its declared type. The key is
// operator bookkeeping only; callers must treat an empty key as valid.
func IsKeyValid(tipo, chave string) bool {
	chave = strings.TrimSpace(chave)
	if chave == "" {
		return true
	}
	switch tipo {
	case KeyTypeCPF:
		return IsCPFValid(chave)
	case KeyTypeEmail:
		return IsEmailValid(chave)
	case KeyTypeTelefone:
		return IsPhoneValid(chave)
	case KeyTypeAleatoria:
		return len(chave) >= 10
	default:
		return false
	}
}
