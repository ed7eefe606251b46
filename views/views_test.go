package views

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type field struct{ Name, Value string }

func TestCheckoutTemplate(t *testing.T) {
	engine := NewEngine()
	require.NoError(t, engine.Load())

	var buf bytes.Buffer
	err := engine.Render(&buf, "premium/checkout", map[string]any{
		"Tier":    "monthly",
		"Amount":  "50",
		"FormURL": "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
		"Fields": []field{
			{"total_amount", "50"},
			{"success_url", "http://localhost:4000/premium/payment/success?userId=7&premium=true"},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `action="https://rc-epay.esewa.com.np/api/epay/main/v2/form"`)
	assert.Contains(t, out, `name="total_amount" value="50"`)
	assert.Contains(t, out, `value="http://localhost:4000/premium/payment/success?userId=7&amp;premium=true"`)
}
