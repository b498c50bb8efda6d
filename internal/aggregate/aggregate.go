// Package aggregate merges the per-bank match payloads of a status response
// into one cross-bank summary for the view layer. Summarize is pure: no
// I/O, no mutation of its inputs, safe to call on every refresh.
package aggregate

import (
	"sort"

	"github.com/Veraticus/ledger-recon/internal/model"
)

// AutoMatchThreshold is the confidence at and above which a match is
// considered automatic. Matches below it were confirmed manually upstream.
// This is a contract with the job service, not a tunable.
const AutoMatchThreshold = 0.75

// MatchType labels how a matched pair was established.
type MatchType string

// Match types.
const (
	MatchAuto   MatchType = "Auto"
	MatchManual MatchType = "Manual"
)

// TypeForConfidence maps a match confidence to its type.
func TypeForConfidence(confidence float64) MatchType {
	if confidence >= AutoMatchThreshold {
		return MatchAuto
	}
	return MatchManual
}

// MatchRecord is a bank-tagged matched pair.
type MatchRecord struct {
	Bank       string
	MatchType  MatchType
	BankTxn    model.BankTxn
	GlTxn      model.GlTxn
	Confidence float64
}

// ExceptionRecord is a bank-tagged exception awaiting a decision.
type ExceptionRecord struct {
	Bank string
	model.Exception
}

// BankRecord is a bank-tagged unmatched bank transaction.
type BankRecord struct {
	Bank string
	Txn  model.BankTxn
}

// Summary is the unified cross-bank view of one status payload. Counts
// always equal the lengths of their lists.
type Summary struct {
	Matched         []MatchRecord
	UnmatchedBank   []BankRecord
	UnmatchedGl     []model.GlTxn
	Exceptions      []ExceptionRecord
	MatchedCount    int
	UnmatchedCount  int
	ExceptionsCount int
}

// Summarize flattens per-bank matches and the top-level unmatched ledger
// entries into a Summary. An empty or nil map yields an all-zero summary;
// the function never fails. Banks are visited in sorted name order so
// repeated calls paginate identically, but consumers must not depend on any
// particular cross-bank order.
func Summarize(bankMatches map[string]model.BankMatches, unmatchedGl []model.GlTxn) Summary {
	summary := Summary{
		Matched:       []MatchRecord{},
		UnmatchedBank: []BankRecord{},
		UnmatchedGl:   []model.GlTxn{},
		Exceptions:    []ExceptionRecord{},
	}

	if len(unmatchedGl) > 0 {
		summary.UnmatchedGl = append(summary.UnmatchedGl, unmatchedGl...)
	}

	banks := make([]string, 0, len(bankMatches))
	for bank := range bankMatches {
		banks = append(banks, bank)
	}
	sort.Strings(banks)

	for _, bank := range banks {
		data := bankMatches[bank]

		summary.MatchedCount += len(data.MatchedTransactions)
		for _, match := range data.MatchedTransactions {
			summary.Matched = append(summary.Matched, MatchRecord{
				Bank:       bank,
				BankTxn:    match.BankTransaction,
				GlTxn:      match.PairedGl(),
				MatchType:  TypeForConfidence(match.Confidence),
				Confidence: match.Confidence,
			})
		}

		summary.ExceptionsCount += len(data.Exceptions)
		for _, exc := range data.Exceptions {
			summary.Exceptions = append(summary.Exceptions, ExceptionRecord{
				Bank:      bank,
				Exception: exc,
			})
		}

		summary.UnmatchedCount += len(data.UnmatchedBankTransactions)
		for _, txn := range data.UnmatchedBankTransactions {
			summary.UnmatchedBank = append(summary.UnmatchedBank, BankRecord{
				Bank: bank,
				Txn:  txn,
			})
		}
	}

	return summary
}

// FromStatus summarizes a status payload, tolerating nil.
func FromStatus(status *model.StatusPayload) Summary {
	if status == nil {
		return Summarize(nil, nil)
	}
	return Summarize(status.BankMatches, status.UnmatchedGl)
}

// Banks returns the distinct banks appearing in the matched list, sorted.
// Used to build the bank filter selector.
func (s Summary) Banks() []string {
	seen := make(map[string]struct{})
	banks := make([]string, 0)
	for _, m := range s.Matched {
		if _, ok := seen[m.Bank]; !ok {
			seen[m.Bank] = struct{}{}
			banks = append(banks, m.Bank)
		}
	}
	sort.Strings(banks)
	return banks
}

// FilterMatched returns the matched records for one bank, or all records
// when bank is empty. Arrival order is preserved.
func (s Summary) FilterMatched(bank string) []MatchRecord {
	if bank == "" {
		return s.Matched
	}
	filtered := make([]MatchRecord, 0, len(s.Matched))
	for _, m := range s.Matched {
		if m.Bank == bank {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
