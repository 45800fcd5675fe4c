package usecase

import (
	"net/mail"
	"regexp"
	"strings"
)

var phoneFormatting = regexp.MustCompile(`[\s\-\.\(\)/]`)

// NormalizeEmail lower-cases and trims an address. Invalid input yields "".
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return ""
	}
	return addr.Address
}

// NormalizePhone strips formatting and rewrites the 00 international prefix
// to +. Masked or empty numbers yield "".
func NormalizePhone(phone string) string {
	phone = phoneFormatting.ReplaceAllString(strings.TrimSpace(phone), "")
	if phone == "" || IsMaskedNumber(phone) {
		return ""
	}
	if strings.HasPrefix(phone, "00") {
		phone = "+" + phone[2:]
	}
	return phone
}

// NormalizeCallerNumber normalizes a telephony caller id. The provider
// reports international numbers as bare digits, so a digit-only number
// outside the national 0 prefix gets a leading +.
func NormalizeCallerNumber(number string) string {
	phone := NormalizePhone(number)
	if phone == "" || phone[0] == '+' || phone[0] == '0' {
		return phone
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return phone
		}
	}
	return "+" + phone
}

// IsMaskedNumber reports caller ids the telephony provider uses for
// withheld numbers.
func IsMaskedNumber(phone string) bool {
	switch strings.ToLower(strings.TrimSpace(phone)) {
	case "", "anonymous", "unknown", "private", "masked", "withheld", "restricted":
		return true
	}
	return false
}

// SplitName splits a display name on the first space.
func SplitName(name string) (first, last string) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ""
	}
	if i := strings.Index(name, " "); i > 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}
