package httpserver

import "net/mail"

const (
	emailMinLen    = 5
	emailMaxLen    = 25
	passwordMinLen = 6
	passwordMaxLen = 256
)

// registerRequest is the POST /auth/register payload. Validation happens
// here, at the boundary; the service receives only well-formed input.
type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r *registerRequest) validate() map[string]string {
	fields := map[string]string{}
	validateEmail(fields, r.Email)
	validatePassword(fields, r.Password)
	if r.ConfirmPassword != r.Password {
		fields["confirmPassword"] = "Passwords do not match"
	}
	return fields
}

// loginRequest is the POST /auth/login payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) validate() map[string]string {
	fields := map[string]string{}
	validateEmail(fields, r.Email)
	validatePassword(fields, r.Password)
	return fields
}

func validateEmail(fields map[string]string, email string) {
	if len(email) < emailMinLen || len(email) > emailMaxLen {
		fields["email"] = "Email must be between 5 and 25 characters"
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = "Invalid email address"
	}
}

func validatePassword(fields map[string]string, password string) {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		fields["password"] = "Password must be between 6 and 256 characters"
	}
}

// userResponse is the sanitized user representation returned by register,
// login and verify.
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}
