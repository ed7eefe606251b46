package billing

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const maxUnescapeRounds = 3

// CallbackData is the base64 JSON payload the gateway attaches to the success
// redirect. It is used for diagnostics and as an amount hint only; the status
// query is what decides.
type CallbackData struct {
	TransactionCode  string
	Status           string
	TotalAmount      string
	TransactionUUID  string
	ProductCode      string
	SignedFieldNames string
	Signature        string

	values map[string]string
}

func (d *CallbackData) Amount() (decimal.Decimal, error) {
	return ParseAmount(d.TotalAmount)
}

// SignatureValid reports whether the payload was signed with our secret.
func (d *CallbackData) SignatureValid(s *Signer) bool {
	if d.SignedFieldNames == "" || d.Signature == "" {
		return false
	}
	return s.VerifySignedFields(d.values, d.SignedFieldNames, d.Signature)
}

// SplitTransactionID separates a "?data=..." suffix the gateway glued onto
// the last query parameter of the success URL.
func SplitTransactionID(raw string) (transactionID, data string) {
	raw = strings.TrimSpace(raw)
	idx := strings.Index(raw, "?")
	if idx < 0 {
		return raw, ""
	}
	txID := raw[:idx]
	rest, err := url.ParseQuery(raw[idx+1:])
	if err != nil {
		return txID, ""
	}
	return txID, rest.Get("data")
}

// DecodeCallbackData undoes the URL escaping (applied up to twice by some
// browsers and proxies) and the base64 encoding, then parses the JSON body.
func DecodeCallbackData(raw string) (*CallbackData, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, errors.New("callback data is empty")
	}
	for i := 0; i < maxUnescapeRounds && strings.Contains(s, "%"); i++ {
		unescaped, err := url.QueryUnescape(s)
		if err != nil {
			break
		}
		s = unescaped
	}
	// a form-decoded "+" arrives as a space
	s = strings.ReplaceAll(s, " ", "+")

	decoded, err := decodeBase64(s)
	if err != nil {
		return nil, fmt.Errorf("decode callback data: %w", err)
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("parse callback data: %w", err)
	}

	values := make(map[string]string, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		values[k] = fmt.Sprint(v)
	}

	return &CallbackData{
		TransactionCode:  values["transaction_code"],
		Status:           strings.ToUpper(values["status"]),
		TotalAmount:      values["total_amount"],
		TransactionUUID:  values["transaction_uuid"],
		ProductCode:      values["product_code"],
		SignedFieldNames: values["signed_field_names"],
		Signature:        values["signature"],
		values:           values,
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		out, err := enc.DecodeString(s)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
