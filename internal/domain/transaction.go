package domain

import (
	"context"
	"strings"
	"time"
)

// Transaction is one raw ledger record as returned by the data provider.
// Fields keep the provider's string encoding; parsing happens during
// feature extraction so a malformed record degrades instead of failing
// the whole wallet.
type Transaction struct {
	Hash            string `json:"hash,omitempty"`
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	Value           string `json:"value,omitempty"` // wei, base-10
	TimeStamp       string `json:"timeStamp,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Input           string `json:"input,omitempty"`
	TokenSymbol     string `json:"tokenSymbol,omitempty"`
	TokenName       string `json:"tokenName,omitempty"`
}

// SentBy reports whether the transaction was sent by addr.
// Address comparison is case-insensitive.
func (t Transaction) SentBy(addr string) bool {
	return t.From != "" && strings.EqualFold(t.From, addr)
}

// ReceivedBy reports whether the transaction was received by addr.
func (t Transaction) ReceivedBy(addr string) bool {
	return t.To != "" && strings.EqualFold(t.To, addr)
}

// HasPayload reports whether the transaction carries calldata.
// Both "" and the bare "0x" prefix mean no payload.
func (t Transaction) HasPayload() bool {
	return t.Input != "" && t.Input != "0x"
}

// WalletSnapshot is everything fetched about one wallet: its native
// transaction list, its ERC-20 transfer list, and its current balance.
type WalletSnapshot struct {
	Address   string        `json:"address"`
	NativeTxs []Transaction `json:"nativeTxs"`
	TokenTxs  []Transaction `json:"tokenTxs"`

	// BalanceWei is the current balance in wei, base-10.
	BalanceWei string `json:"balanceWei"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// WalletFetcher retrieves a wallet snapshot by address.
// Implementations layer caching and persistence over the chain provider.
type WalletFetcher interface {
	Fetch(ctx context.Context, address string) (*WalletSnapshot, error)
}
