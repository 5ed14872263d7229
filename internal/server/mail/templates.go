package mail

import "fmt"

const (
	appName      = "Quizzy"
	supportEmail = "support@quizzy.app"
)

// VerifyEmailMessage renders the email-verification message around the given
// link. The link must already contain the verification code.
func VerifyEmailMessage(link string) Message {
	return Message{
		Subject: fmt.Sprintf("Verify your %s email address", appName),
		Text: fmt.Sprintf(
			"Welcome to %s!\n\nPlease verify your email address by opening the link below:\n\n%s\n\nIf you did not create this account, you can ignore this message or contact %s.",
			appName, link, supportEmail),
		HTML: fmt.Sprintf(
			`<p>Welcome to %s!</p><p>Please verify your email address by clicking the link below:</p><p><a href="%s">Verify email</a></p><p>If you did not create this account, you can ignore this message or contact %s.</p>`,
			appName, link, supportEmail),
	}
}

// PasswordResetMessage renders the password-reset message around the given
// link.
func PasswordResetMessage(link string) Message {
	return Message{
		Subject: fmt.Sprintf("Reset your %s password", appName),
		Text: fmt.Sprintf(
			"We received a request to reset your %s password.\n\nOpen the link below to choose a new one:\n\n%s\n\nIf you did not request this, you can ignore this message or contact %s.",
			appName, link, supportEmail),
		HTML: fmt.Sprintf(
			`<p>We received a request to reset your %s password.</p><p><a href="%s">Reset password</a></p><p>If you did not request this, you can ignore this message or contact %s.</p>`,
			appName, link, supportEmail),
	}
}
