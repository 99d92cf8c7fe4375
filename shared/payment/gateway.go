// Package payment defines the payment gateway collaborator boundary. The
// ledger core calls it to create orders and to verify payment signatures;
// everything behind the interface (order-creation REST calls, signature
// cryptography) belongs to the provider SDK.
package payment

// Gateway is one configured provider client. Amounts cross this boundary
// in minor currency units (paise).
type Gateway interface {
	// CreateOrder registers a payment order and returns the provider's
	// opaque order reference.
	CreateOrder(amountMinor int64, currency, receipt string) (orderID string, err error)

	// VerifySignature reports whether the signature matches the
	// order/payment pair.
	VerifySignature(orderID, paymentID, signature string) bool
}

// Factory builds a Gateway for a key pair. The transaction recorder uses
// it to honor per-consultancy gateway credentials with a system default
// fallback.
type Factory func(keyID, keySecret string) Gateway
