package model

// BankTxn is a single bank statement transaction as the job service reports
// it. Fields the service sends inconsistently have resolution methods below
// instead of silent defaults at every call site.
type BankTxn struct {
	TransactionID   string   `json:"transaction_id"`
	Date            string   `json:"date"`
	Description     string   `json:"description"`
	Narration       string   `json:"narration"`
	Type            string   `json:"type"`
	TransactionType string   `json:"transaction_type"`
	Balance         *float64 `json:"balance,omitempty"`
	Amount          float64  `json:"amount"`
}

// DisplayDescription resolves the description field: the service writes
// either description or narration depending on the bank connector.
func (t BankTxn) DisplayDescription() string {
	if t.Description != "" {
		return t.Description
	}
	return t.Narration
}

// DisplayType resolves the transaction type, deriving it from the amount
// sign when the service omitted both type fields.
func (t BankTxn) DisplayType() string {
	if t.Type != "" {
		return t.Type
	}
	if t.TransactionType != "" {
		return t.TransactionType
	}
	if t.Amount < 0 {
		return "Debit"
	}
	return "Credit"
}

// GlTxn is a general ledger entry. DebitBase and CreditBase are pointers
// because absence and zero mean different things to amount resolution.
type GlTxn struct {
	DebitBase     *float64 `json:"debit_base,omitempty"`
	CreditBase    *float64 `json:"credit_base,omitempty"`
	TransactionID string   `json:"transaction_id"`
	Date          string   `json:"date"`
	Description   string   `json:"description"`
	Account       string   `json:"account"`
	Amount        float64  `json:"amount"`
}

// ResolvedAmount picks the ledger amount: debit base, then credit base, then
// the plain amount field.
func (g GlTxn) ResolvedAmount() float64 {
	if g.DebitBase != nil {
		return *g.DebitBase
	}
	if g.CreditBase != nil {
		return *g.CreditBase
	}
	return g.Amount
}

// Match is a bank/ledger pair the service matched automatically.
type Match struct {
	BankTransaction BankTxn `json:"bank_transaction"`
	GlEntries       []GlTxn `json:"gl_entries"`
	Confidence      float64 `json:"confidence"`
}

// PairedGl returns the ledger record paired with this match: the first
// gl_entries element when present, otherwise a zero record. Never an error.
func (m Match) PairedGl() GlTxn {
	if len(m.GlEntries) > 0 {
		return m.GlEntries[0]
	}
	return GlTxn{}
}

// Exception is a moderate-confidence match that needs an operator decision.
type Exception struct {
	BankAccount     string      `json:"bank_account"`
	AIReasoning     string      `json:"ai_reasoning"`
	BankTransaction BankTxn     `json:"bank_transaction"`
	GlEntries       []GlTxn     `json:"gl_entries"`
	Confidence      float64     `json:"confidence"`
	AIConfidence    float64     `json:"ai_confidence"`
	Scores          MatchScores `json:"scores"`
	AIAnalyzed      bool        `json:"ai_analyzed"`
}

// MatchScores breaks a rule-based confidence into its components.
type MatchScores struct {
	Amount      float64 `json:"amount"`
	Date        float64 `json:"date"`
	Description float64 `json:"description"`
}

// ID derives the decisioning identity for this exception. The server does
// not assign one; both sides compute bankAccount + "_" + transactionId.
func (e Exception) ID() string {
	account := e.BankAccount
	if account == "" {
		account = "unknown"
	}
	txn := e.BankTransaction.TransactionID
	if txn == "" {
		txn = "unknown"
	}
	return account + "_" + txn
}
