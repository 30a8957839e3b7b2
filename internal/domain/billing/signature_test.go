package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignReceipt_MatchesHMAC(t *testing.T) {
	secret := []byte("test_secret")
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("order_123|pay_456"))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, SignReceipt(secret, "order_123", "pay_456"))
}

func TestVerifyReceiptSignature(t *testing.T) {
	secret := []byte("test_secret")
	sig := SignReceipt(secret, "order_123", "pay_456")

	assert.True(t, VerifyReceiptSignature(secret, Receipt{OrderID: "order_123", PaymentID: "pay_456", Signature: sig}))

	t.Run("every single byte mutation is rejected", func(t *testing.T) {
		for i := 0; i < len(sig); i++ {
			mutated := []byte(sig)
			mutated[i] ^= 0x01
			ok := VerifyReceiptSignature(secret, Receipt{OrderID: "order_123", PaymentID: "pay_456", Signature: string(mutated)})
			assert.False(t, ok, "mutation at byte %d accepted", i)
		}
	})

	t.Run("uppercase hex is rejected", func(t *testing.T) {
		upper := []byte(sig)
		for i, c := range upper {
			if c >= 'a' && c <= 'f' {
				upper[i] = c - 32
				break
			}
		}
		assert.False(t, VerifyReceiptSignature(secret, Receipt{OrderID: "order_123", PaymentID: "pay_456", Signature: string(upper)}))
	})

	t.Run("swapped ids are rejected", func(t *testing.T) {
		assert.False(t, VerifyReceiptSignature(secret, Receipt{OrderID: "pay_456", PaymentID: "order_123", Signature: sig}))
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		assert.False(t, VerifyReceiptSignature([]byte("other"), Receipt{OrderID: "order_123", PaymentID: "pay_456", Signature: sig}))
	})

	t.Run("empty secret or signature is rejected", func(t *testing.T) {
		assert.False(t, VerifyReceiptSignature(nil, Receipt{OrderID: "order_123", PaymentID: "pay_456", Signature: sig}))
		assert.False(t, VerifyReceiptSignature(secret, Receipt{OrderID: "order_123", PaymentID: "pay_456"}))
	})
}
