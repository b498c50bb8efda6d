package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 { return &f }

func TestBankTxn_DisplayDescription(t *testing.T) {
	tests := []struct {
		name string
		txn  BankTxn
		want string
	}{
		{name: "description wins", txn: BankTxn{Description: "POS purchase", Narration: "ignored"}, want: "POS purchase"},
		{name: "narration fallback", txn: BankTxn{Narration: "NIP transfer"}, want: "NIP transfer"},
		{name: "both empty", txn: BankTxn{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.txn.DisplayDescription())
		})
	}
}

func TestBankTxn_DisplayType(t *testing.T) {
	tests := []struct {
		name string
		txn  BankTxn
		want string
	}{
		{name: "type wins", txn: BankTxn{Type: "POS", TransactionType: "ignored", Amount: -5}, want: "POS"},
		{name: "transaction_type fallback", txn: BankTxn{TransactionType: "TRANSFER"}, want: "TRANSFER"},
		{name: "negative amount is debit", txn: BankTxn{Amount: -120.50}, want: "Debit"},
		{name: "positive amount is credit", txn: BankTxn{Amount: 300}, want: "Credit"},
		{name: "zero amount is credit", txn: BankTxn{}, want: "Credit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.txn.DisplayType())
		})
	}
}

func TestGlTxn_ResolvedAmount(t *testing.T) {
	tests := []struct {
		name string
		txn  GlTxn
		want float64
	}{
		{name: "debit base wins", txn: GlTxn{DebitBase: floatPtr(100), CreditBase: floatPtr(200), Amount: 300}, want: 100},
		{name: "zero debit base still wins", txn: GlTxn{DebitBase: floatPtr(0), CreditBase: floatPtr(200)}, want: 0},
		{name: "credit base second", txn: GlTxn{CreditBase: floatPtr(200), Amount: 300}, want: 200},
		{name: "amount last", txn: GlTxn{Amount: 300}, want: 300},
		{name: "empty record", txn: GlTxn{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.txn.ResolvedAmount(), 1e-9)
		})
	}
}

func TestMatch_PairedGl(t *testing.T) {
	t.Run("first entry is the pair", func(t *testing.T) {
		m := Match{GlEntries: []GlTxn{{TransactionID: "gl-1"}, {TransactionID: "gl-2"}}}
		assert.Equal(t, "gl-1", m.PairedGl().TransactionID)
	})

	t.Run("no entries yields zero record", func(t *testing.T) {
		assert.Equal(t, GlTxn{}, Match{}.PairedGl())
	})
}

func TestException_ID(t *testing.T) {
	tests := []struct {
		name string
		exc  Exception
		want string
	}{
		{
			name: "account and transaction id",
			exc:  Exception{BankAccount: "mono-001", BankTransaction: BankTxn{TransactionID: "tx-42"}},
			want: "mono-001_tx-42",
		},
		{
			name: "missing account",
			exc:  Exception{BankTransaction: BankTxn{TransactionID: "tx-42"}},
			want: "unknown_tx-42",
		},
		{
			name: "missing transaction id",
			exc:  Exception{BankAccount: "mono-001"},
			want: "mono-001_unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.exc.ID())
		})
	}
}
