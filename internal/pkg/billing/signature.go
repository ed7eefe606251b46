package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SignedFieldNames is sent with every payment form. The order is part of the
// signature.
const SignedFieldNames = "total_amount,transaction_uuid,product_code"

type Field struct {
	Name  string
	Value string
}

// Signer produces the gateway's HMAC-SHA256 signatures.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign joins the fields as name=value pairs separated by commas, in the given
// order, and returns the base64 encoded HMAC-SHA256 of that message.
func (s *Signer) Sign(fields []Field) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: secret key", ErrMissingSignatureField)
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: no fields", ErrMissingSignatureField)
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name == "" || f.Value == "" {
			return "", fmt.Errorf("%w: %q", ErrMissingSignatureField, f.Name)
		}
		parts = append(parts, f.Name+"="+f.Value)
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join(parts, ",")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignTransaction signs the three fields every payment form and status query carries.
func (s *Signer) SignTransaction(amount decimal.Decimal, transactionID, productCode string) (string, error) {
	return s.Sign(transactionFields(FormatAmount(amount), transactionID, productCode))
}

// VerifyTransaction recomputes the transaction signature and compares it in
// constant time.
func (s *Signer) VerifyTransaction(amount decimal.Decimal, transactionID, productCode, signature string) bool {
	expected, err := s.SignTransaction(amount, transactionID, productCode)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// VerifySignedFields checks a gateway-signed payload that names its own
// signed fields, like the success callback data.
func (s *Signer) VerifySignedFields(values map[string]string, signedFieldNames, signature string) bool {
	names := strings.Split(signedFieldNames, ",")
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		fields = append(fields, Field{Name: name, Value: values[name]})
	}
	expected, err := s.Sign(fields)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func transactionFields(totalAmount, transactionID, productCode string) []Field {
	return []Field{
		{Name: "total_amount", Value: totalAmount},
		{Name: "transaction_uuid", Value: transactionID},
		{Name: "product_code", Value: productCode},
	}
}
