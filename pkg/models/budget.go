package models

// BudgetPeriod defines the time window for the token budget.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetStatus shows current usage against the configured cap.
type BudgetStatus struct {
	Period    BudgetPeriod `json:"period"`
	MaxTokens int64        `json:"max_tokens"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
