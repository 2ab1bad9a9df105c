package money

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticIsExact(t *testing.T) {
	a := MustNew("0.10")
	b := MustNew("0.20")

	assert.True(t, a.Add(b).Equal(MustNew("0.30")))
	assert.True(t, MustNew("150.00").Sub(MustNew("200.00")).IsNegative())
	assert.True(t, MustNew("100.00").LessThan(MustNew("100.01")))
	assert.False(t, MustNew("100.00").LessThan(MustNew("100")))
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{name: "positive", amount: "100.00"},
		{name: "one cent", amount: "0.01"},
		{name: "zero", amount: "0", wantErr: ErrInvalidAmount},
		{name: "negative", amount: "-5", wantErr: ErrInvalidAmount},
		{name: "sub-cent", amount: "1.005", wantErr: ErrTooPrecise},
		{name: "trailing zeros allowed", amount: "1.5000"},
		{name: "largest storable", amount: "9999999999999999.99"},
		{name: "above column maximum", amount: "10000000000000000", wantErr: ErrInvalidAmount},
		{name: "exponent form above maximum", amount: "1e20", wantErr: ErrInvalidAmount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(MustNew(tc.amount))
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var req struct {
		Amount Money `json:"amount"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"amount": 75.5}`), &req))
	assert.Equal(t, "75.50", req.Amount.String())

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "12.34"}`), &req))
	assert.Equal(t, "12.34", req.Amount.String())

	err := json.Unmarshal([]byte(`{"amount": "abc"}`), &req)
	require.Error(t, err)
}

func TestNew_RejectsUnboundedMagnitude(t *testing.T) {
	for _, in := range []string{"1e5000000", "1e-5000000", "1" + strings.Repeat("0", 60)} {
		_, err := New(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}

	var req struct {
		Amount Money `json:"amount"`
	}
	err := json.Unmarshal([]byte(`{"amount": 1e5000000}`), &req)
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.True(t, req.Amount.IsZero())

	err = json.Unmarshal([]byte(`{"amount": "1E999999"}`), &req)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Money{"balance": MustNew("25")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":"25.00"}`, string(b))
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"150.5", "$150.50"},
		{"1234.56", "$1,234.56"},
		{"1234567.891", "$1,234,567.89"},
		{"-5", "-$5.00"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatUSD(MustNew(tc.in)))
		})
	}
}
