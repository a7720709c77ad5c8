package model

import (
	"strings"

	"github.com/jwalitptl/dental-api/pkg/validator"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type User struct {
	ClinicScoped
	Email string `json:"email" db:"email" validate:"required,email"`
	// Password holds the bcrypt hash once stored and is never serialized in responses.
	Password    string    `json:"password,omitempty" db:"password"`
	Phone       string    `json:"phone" db:"phone"`
	Role        UserRole  `json:"role" db:"role" validate:"required,oneof=admin user"`
	Proficiency string    `json:"proficiency" db:"proficiency"`
	CreatedAt   Timestamp `json:"createdAt" db:"created_at"`
}

func (u *User) Validate() error {
	return validator.Struct(u)
}

// Public returns a copy without the password hash.
func (u *User) Public() *User {
	out := *u
	out.Password = ""
	return &out
}

// NormalizeEmail lowercases and trims an address for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type OTPSendRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type OTPSendResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

type OTPVerifyRequest struct {
	Phone string `json:"phone" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

type OTPVerifyResponse struct {
	Verified bool `json:"verified"`
}
