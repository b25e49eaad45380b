package core

// TypeAmount represents an amount aggregated by transaction type.
type TypeAmount struct {
	Type   TransactionType
	Amount Money
}

// WalletOverview is a compact summary of one child's wallet: the current
// balance and the signed totals per transaction type.
type WalletOverview struct {
	ChildID int64
	Balance Money
	ByType  []TypeAmount
}
