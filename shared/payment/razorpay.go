package payment

import (
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	rputils "github.com/razorpay/razorpay-go/utils"
)

// razorpayGateway implements Gateway over the official Razorpay SDK.
type razorpayGateway struct {
	client    *razorpay.Client
	keySecret string
}

// NewRazorpayGateway creates a Gateway for the given key pair. Use as a
// Factory when wiring the transaction recorder.
func NewRazorpayGateway(keyID, keySecret string) Gateway {
	return &razorpayGateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keySecret: keySecret,
	}
}

func (g *razorpayGateway) CreateOrder(amountMinor int64, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	orderID, ok := order["id"].(string)
	if !ok {
		return "", fmt.Errorf("create order: response missing order id")
	}
	return orderID, nil
}

func (g *razorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return rputils.VerifyPaymentSignature(params, signature, g.keySecret)
}
