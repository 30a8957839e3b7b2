package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ReceiptPayload is the message the gateway signs: orderID + "|" + paymentID
func ReceiptPayload(orderID, paymentID string) string {
	return orderID + "|" + paymentID
}

// SignReceipt returns the lowercase hex HMAC-SHA256 of the receipt payload
func SignReceipt(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ReceiptPayload(orderID, paymentID)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyReceiptSignature recomputes the signature and compares it in constant time.
// The comparison is on the hex text itself, so a case change in the supplied
// signature is a mismatch too.
func VerifyReceiptSignature(secret []byte, r Receipt) bool {
	if len(secret) == 0 || r.Signature == "" {
		return false
	}
	expected := SignReceipt(secret, r.OrderID, r.PaymentID)
	return hmac.Equal([]byte(expected), []byte(r.Signature))
}
