package billing

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base64 JSON exactly as the sandbox sends it for a 50 NPR payment
const sandboxCallbackData = "eyJ0cmFuc2FjdGlvbl9jb2RlIjoiMDAwQVdFTyIsInN0YXR1cyI6IkNPTVBMRVRFIiwidG90YWxfYW1vdW50IjoiNTAuMCIsInRyYW5zYWN0aW9uX3V1aWQiOiJQUkVNSVVNLTctMTc5MjEzOTQwMDAwMCIsInByb2R1Y3RfY29kZSI6IkVQQVlURVNUIiwic2lnbmVkX2ZpZWxkX25hbWVzIjoidHJhbnNhY3Rpb25fY29kZSxzdGF0dXMsdG90YWxfYW1vdW50LHRyYW5zYWN0aW9uX3V1aWQscHJvZHVjdF9jb2RlLHNpZ25lZF9maWVsZF9uYW1lcyIsInNpZ25hdHVyZSI6IkI4UnNFcUQrTnZLeENmNE8zRTVVTkdmV2NOdk85MWt4QkJJNkhKTDBGM009In0="

func TestSplitTransactionID(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantTxID string
		wantData string
	}{
		{"plain", testTxID, testTxID, ""},
		{"with data", testTxID + "?data=abc", testTxID, "abc"},
		{"escaped data", testTxID + "?data=" + url.QueryEscape("ab+c="), testTxID, "ab+c="},
		{"whitespace", "  " + testTxID + " ", testTxID, ""},
		{"question mark only", testTxID + "?", testTxID, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txID, data := SplitTransactionID(tt.raw)
			assert.Equal(t, tt.wantTxID, txID)
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestDecodeCallbackData(t *testing.T) {
	encodings := map[string]string{
		"raw":           sandboxCallbackData,
		"escaped once":  url.QueryEscape(sandboxCallbackData),
		"escaped twice": url.QueryEscape(url.QueryEscape(sandboxCallbackData)),
	}

	for name, raw := range encodings {
		t.Run(name, func(t *testing.T) {
			d, err := DecodeCallbackData(raw)
			require.NoError(t, err)

			assert.Equal(t, "000AWEO", d.TransactionCode)
			assert.Equal(t, "COMPLETE", d.Status)
			assert.Equal(t, testTxID, d.TransactionUUID)
			assert.Equal(t, "EPAYTEST", d.ProductCode)

			amount, err := d.Amount()
			require.NoError(t, err)
			assert.True(t, amount.Equal(decimal.NewFromInt(50)))

			assert.True(t, d.SignatureValid(NewSigner(testSecret)))
			assert.False(t, d.SignatureValid(NewSigner("wrong")))
		})
	}
}

func TestDecodeCallbackData_NumericAmount(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte(`{"status":"complete","total_amount":1000.0,"transaction_uuid":"PREMIUM-7-1"}`))

	d, err := DecodeCallbackData(raw)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", d.Status)
	assert.Equal(t, "1000.0", d.TotalAmount)
	assert.False(t, d.SignatureValid(NewSigner(testSecret)))
}

func TestDecodeCallbackData_Invalid(t *testing.T) {
	for _, raw := range []string{"", "%%%", "bm90IGpzb24=", "!!!not-base64!!!"} {
		_, err := DecodeCallbackData(raw)
		assert.Error(t, err, raw)
	}
}
