package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledger-recon/internal/model"
)

func bankTxn(id string, amount float64) model.BankTxn {
	return model.BankTxn{TransactionID: id, Amount: amount, Date: "2025-07-10"}
}

func glTxn(id string, amount float64) model.GlTxn {
	return model.GlTxn{TransactionID: id, Amount: amount, Date: "2025-07-10"}
}

func TestSummarize_EmptyInput(t *testing.T) {
	tests := []struct {
		name    string
		matches map[string]model.BankMatches
		gl      []model.GlTxn
	}{
		{name: "nil map"},
		{name: "empty map", matches: map[string]model.BankMatches{}},
		{name: "bank with empty lists", matches: map[string]model.BankMatches{"Mono": {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Summarize(tt.matches, tt.gl)
			assert.Zero(t, summary.MatchedCount)
			assert.Zero(t, summary.UnmatchedCount)
			assert.Zero(t, summary.ExceptionsCount)
			assert.Empty(t, summary.Matched)
			assert.Empty(t, summary.UnmatchedBank)
			assert.Empty(t, summary.UnmatchedGl)
			assert.Empty(t, summary.Exceptions)
		})
	}
}

func TestSummarize_CountsSumAcrossBanks(t *testing.T) {
	matches := map[string]model.BankMatches{
		"Mono": {
			MatchedTransactions: []model.Match{
				{BankTransaction: bankTxn("m1", 100), GlEntries: []model.GlTxn{glTxn("g1", 100)}, Confidence: 0.9},
				{BankTransaction: bankTxn("m2", 200), Confidence: 0.7},
			},
			Exceptions: []model.Exception{
				{BankAccount: "mono-1", BankTransaction: bankTxn("e1", 50), Confidence: 0.65},
			},
			UnmatchedBankTransactions: []model.BankTxn{bankTxn("u1", 10)},
		},
		"GTBank": {
			MatchedTransactions: []model.Match{
				{BankTransaction: bankTxn("m3", 300), GlEntries: []model.GlTxn{glTxn("g3", 300)}, Confidence: 0.8},
			},
			Exceptions: []model.Exception{
				{BankAccount: "gt-1", BankTransaction: bankTxn("e2", 60), Confidence: 0.62},
				{BankAccount: "gt-1", BankTransaction: bankTxn("e3", 70), Confidence: 0.71},
			},
			UnmatchedBankTransactions: []model.BankTxn{bankTxn("u2", 20), bankTxn("u3", 30)},
		},
	}
	unmatchedGl := []model.GlTxn{glTxn("ug1", 40), glTxn("ug2", 50)}

	summary := Summarize(matches, unmatchedGl)

	assert.Equal(t, 3, summary.MatchedCount)
	assert.Equal(t, 3, summary.UnmatchedCount)
	assert.Equal(t, 3, summary.ExceptionsCount)

	// Counts are always the lengths of their lists.
	assert.Len(t, summary.Matched, summary.MatchedCount)
	assert.Len(t, summary.UnmatchedBank, summary.UnmatchedCount)
	assert.Len(t, summary.Exceptions, summary.ExceptionsCount)
	assert.Len(t, summary.UnmatchedGl, 2)

	// Every record carries its bank tag.
	for _, m := range summary.Matched {
		assert.NotEmpty(t, m.Bank)
	}
	for _, e := range summary.Exceptions {
		assert.NotEmpty(t, e.Bank)
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	matches := map[string]model.BankMatches{
		"Mono": {
			MatchedTransactions: []model.Match{
				{BankTransaction: bankTxn("m1", 100), Confidence: 0.8},
			},
		},
	}

	first := Summarize(matches, nil)
	second := Summarize(matches, nil)
	assert.Equal(t, first, second)
}

func TestSummarize_PairsFirstGlEntry(t *testing.T) {
	matches := map[string]model.BankMatches{
		"Mono": {
			MatchedTransactions: []model.Match{
				{
					BankTransaction: bankTxn("m1", 100),
					GlEntries:       []model.GlTxn{glTxn("first", 100), glTxn("second", 100)},
					Confidence:      0.9,
				},
				{BankTransaction: bankTxn("m2", 200), Confidence: 0.8},
			},
		},
	}

	summary := Summarize(matches, nil)
	require.Len(t, summary.Matched, 2)
	assert.Equal(t, "first", summary.Matched[0].GlTxn.TransactionID)
	assert.Equal(t, model.GlTxn{}, summary.Matched[1].GlTxn)
}

func TestTypeForConfidence_Boundary(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       MatchType
	}{
		{name: "exactly at threshold is auto", confidence: 0.75, want: MatchAuto},
		{name: "just under threshold is manual", confidence: 0.749999, want: MatchManual},
		{name: "high confidence is auto", confidence: 0.99, want: MatchAuto},
		{name: "zero is manual", confidence: 0, want: MatchManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeForConfidence(tt.confidence))
		})
	}
}

func TestFromStatus_NilStatus(t *testing.T) {
	summary := FromStatus(nil)
	assert.Zero(t, summary.MatchedCount)
	assert.Empty(t, summary.Matched)
}

func TestSummary_Banks(t *testing.T) {
	summary := Summary{
		Matched: []MatchRecord{
			{Bank: "Mono"},
			{Bank: "GTBank"},
			{Bank: "Mono"},
		},
	}
	assert.Equal(t, []string{"GTBank", "Mono"}, summary.Banks())
}

func TestSummary_FilterMatched(t *testing.T) {
	summary := Summary{
		Matched: []MatchRecord{
			{Bank: "Mono", BankTxn: bankTxn("a", 1)},
			{Bank: "GTBank", BankTxn: bankTxn("b", 2)},
			{Bank: "Mono", BankTxn: bankTxn("c", 3)},
		},
	}

	t.Run("empty bank returns all", func(t *testing.T) {
		assert.Len(t, summary.FilterMatched(""), 3)
	})

	t.Run("filter preserves arrival order", func(t *testing.T) {
		mono := summary.FilterMatched("Mono")
		require.Len(t, mono, 2)
		assert.Equal(t, "a", mono[0].BankTxn.TransactionID)
		assert.Equal(t, "c", mono[1].BankTxn.TransactionID)
	})

	t.Run("unknown bank returns empty", func(t *testing.T) {
		assert.Empty(t, summary.FilterMatched("Zenith"))
	})
}
