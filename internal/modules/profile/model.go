// README: Rider profile captured from the first shared contact.
package profile

import (
	"errors"
	"strings"
	"time"

	"flytaxi/internal/types"
)

var (
	ErrNotFound       = errors.New("rider profile not found")
	ErrInvalidProfile = errors.New("invalid rider profile")
)

type Profile struct {
	RiderID       types.ID
	DisplayName   string
	ContactHandle string
	Phone         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate requires a rider id and a phone number with at least 7 digits.
func (p Profile) Validate() error {
	if p.RiderID == "" {
		return errors.Join(ErrInvalidProfile, errors.New("rider id is required"))
	}
	digits := 0
	for _, r := range p.Phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return errors.Join(ErrInvalidProfile, errors.New("phone contains invalid characters"))
		}
	}
	if digits < 7 {
		return errors.Join(ErrInvalidProfile, errors.New("phone number is too short"))
	}
	return nil
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
