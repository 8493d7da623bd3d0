package commands

import (
	"time"
)

// ListKind tells what a cached list shows
type ListKind string

const (
	ListTransactions ListKind = "transactions"
	ListDebts        ListKind = "debts"
)

// ListResult is the last list shown in a channel. Entries are row IDs in
// display order, so position N is IDs[N-1].
type ListResult struct {
	Kind ListKind `json:"kind"`
	IDs  []string `json:"ids"`
}

// Allocation is one fund's share of a proposal
type Allocation struct {
	Fund    string `json:"fund"`
	Percent int    `json:"percent"`
	Amount  int64  `json:"amount"`
}

// FundProposal is the last fund calculator result, consumed by fund apply
type FundProposal struct {
	Year        int          `json:"year"`
	Month       time.Month   `json:"month"`
	Net         int64        `json:"net"`
	Allocations []Allocation `json:"allocations"`
}

// proposalTTL bounds how stale a proposal fund apply accepts
const proposalTTL = 30 * time.Minute
