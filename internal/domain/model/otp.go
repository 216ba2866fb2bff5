package model

import "time"

type OtpPurpose string

const (
	OtpRegistration OtpPurpose = "REGISTRATION"
	OtpLogin        OtpPurpose = "LOGIN"
)

func (p OtpPurpose) Valid() bool {
	return p == OtpRegistration || p == OtpLogin
}

// MaxOtpAttempts is the number of wrong guesses after which a code is
// destroyed.
const MaxOtpAttempts = 5

type Otp struct {
	ID        string     `db:"id"`
	Email     string     `db:"email"`
	Purpose   OtpPurpose `db:"purpose"`
	CodeHash  string     `db:"code_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	Verified  bool       `db:"verified"`
	Attempts  int        `db:"attempts"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}
