// Package mailer is the credential-delivery collaborator: it carries OTP
// codes and payment receipts to users by email. Delivery failures are
// reported to the caller but never roll back the state that triggered
// the send.
package mailer

import "fmt"

// Mailer sends a single email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SendResetOTP delivers a password-reset code.
func SendResetOTP(m Mailer, to, code string) error {
	body := fmt.Sprintf("Your OTP is %s. It is valid for 10 minutes.", code)
	return m.Send(to, "Password Reset OTP", body)
}

// SendStepUpCode delivers a step-up verification code for a password
// change.
func SendStepUpCode(m Mailer, to, code string) error {
	body := fmt.Sprintf("Your verification code is %s. It is valid for 10 minutes.", code)
	return m.Send(to, "Verification Code", body)
}

// SendPaymentReceipt delivers a payment confirmation.
func SendPaymentReceipt(m Mailer, to, name, transactionID string, amount float64) error {
	body := fmt.Sprintf("Dear %s,\n\nYour payment of %.2f has been received.\nTransaction ID: %s\n",
		name, amount, transactionID)
	return m.Send(to, "Payment Received", body)
}
