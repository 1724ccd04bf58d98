package features

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ErrInvalidAddress is returned when the target address is empty or not
// a hex-encoded account address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// ErrInvalidBalance is returned when the supplied balance is non-empty
// but not a base-10 integer.
var ErrInvalidBalance = errors.New("invalid balance")

// FromSnapshot extracts the feature vector from a fetched wallet snapshot.
func FromSnapshot(snap *domain.WalletSnapshot) (*domain.FeatureVector, error) {
	return Extract(snap.Address, snap.NativeTxs, snap.TokenTxs, snap.BalanceWei)
}

// Extract computes the 47-column feature vector for one wallet.
//
// Empty transaction histories are legitimate input: the vector keeps its
// training-set defaults, with only the balance written from live data.
// Malformed individual records are skipped, never fatal. The only hard
// errors are a bad address or an unparseable balance.
func Extract(address string, nativeTxs, tokenTxs []domain.Transaction, balanceWei string) (*domain.FeatureVector, error) {
	if address == "" || !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	addr := strings.ToLower(address)

	f := domain.DefaultFeatures()

	balance, err := balanceEther(balanceWei)
	if err != nil {
		return nil, err
	}

	// Short-circuit for wallets with no history at all: defaults plus the
	// live balance.
	if len(nativeTxs) == 0 && len(tokenTxs) == 0 {
		f.TotalEtherBalance = balance
		return &f, nil
	}

	sent, received := partition(nativeTxs, addr)
	creations := contractCreations(nativeTxs)

	var contractBound []domain.Transaction
	for _, tx := range sent {
		if isContractBound(tx, creations) {
			contractBound = append(contractBound, tx)
		}
	}

	sentTS := timestamps(sent)
	receivedTS := timestamps(received)
	allTS := append(append([]int64{}, sentTS...), receivedTS...)

	f.SentTnx = float64(len(sent))
	f.ReceivedTnx = float64(len(received))
	f.TotalTransactions = float64(len(nativeTxs))
	f.CreatedContracts = float64(len(creations))

	f.AvgMinBetweenSentTnx = avgMinutesBetween(sentTS)
	f.AvgMinBetweenRecTnx = avgMinutesBetween(receivedTS)
	if len(allTS) > 0 {
		f.TimeDiffFirstLastMins = spanMinutes(allTS)
	}

	f.UniqueSentTo = uniqueAddrs(sent, func(tx domain.Transaction) string { return tx.To })
	f.UniqueReceivedFrom = uniqueAddrs(received, func(tx domain.Transaction) string { return tx.From })

	sentValues := etherValues(sent)
	receivedValues := etherValues(received)

	if s, ok := valueStats(receivedValues); ok {
		f.MinValueReceived = s.Min
		f.MaxValueReceived = s.Max
		f.AvgValueReceived = s.Mean
	}
	if s, ok := valueStats(sentValues); ok {
		f.MinValSent = s.Min
		f.MaxValSent = s.Max
		f.AvgValSent = s.Mean
	}

	// Cumulative sums are written unconditionally: a wallet with history
	// but no transfers in one direction really did move zero ether.
	f.TotalEtherReceived = sum(receivedValues)
	f.TotalEtherSent = sum(sentValues)
	f.TotalEtherBalance = balance

	contractValues := etherValues(contractBound)
	if s, ok := valueStats(contractValues); ok {
		f.MinValueSentToContract = s.Min
		f.MaxValSentToContract = s.Max
		f.AvgValueSentToContract = s.Mean
	}
	f.TotalEtherSentContracts = sum(contractValues)

	if len(tokenTxs) > 0 {
		extractTokenFeatures(&f, tokenTxs, addr, creations)
	}

	return &f, nil
}

// extractTokenFeatures fills the 25 ERC-20 columns, mirroring the native
// logic over the token transfer list. Two columns intentionally mirror
// earlier ones; the training schema carries that duplication.
func extractTokenFeatures(f *domain.FeatureVector, tokenTxs []domain.Transaction, addr string, creations map[string]bool) {
	sent, received := partition(tokenTxs, addr)

	var contractBound []domain.Transaction
	for _, tx := range sent {
		if creations[strings.ToLower(tx.To)] {
			contractBound = append(contractBound, tx)
		}
	}

	f.ERC20TotalTnxs = float64(len(tokenTxs))

	sentValues := etherValues(sent)
	receivedValues := etherValues(received)
	contractValues := etherValues(contractBound)

	f.ERC20TotalEtherSent = sum(sentValues)
	f.ERC20TotalEtherReceived = sum(receivedValues)
	f.ERC20TotalEtherSentContract = sum(contractValues)

	f.ERC20UniqSentAddr = uniqueAddrs(sent, func(tx domain.Transaction) string { return tx.To })
	f.ERC20UniqRecAddr = uniqueAddrs(received, func(tx domain.Transaction) string { return tx.From })
	f.ERC20UniqSentContractAddr = f.ERC20UniqSentAddr
	f.ERC20UniqRecContractAddr = uniqueAddrs(contractBound, func(tx domain.Transaction) string { return tx.From })

	f.ERC20AvgTimeBetweenSentTnx = avgMinutesBetween(timestamps(sent))
	f.ERC20AvgTimeBetweenRecTnx = avgMinutesBetween(timestamps(received))
	f.ERC20AvgTimeBetweenRec2Tnx = f.ERC20AvgTimeBetweenRecTnx
	f.ERC20AvgTimeBetweenContractTnx = avgMinutesBetween(timestamps(contractBound))

	if s, ok := valueStats(receivedValues); ok {
		f.ERC20MinValRec = s.Min
		f.ERC20MaxValRec = s.Max
		f.ERC20AvgValRec = s.Mean
	}
	if s, ok := valueStats(sentValues); ok {
		f.ERC20MinValSent = s.Min
		f.ERC20MaxValSent = s.Max
		f.ERC20AvgValSent = s.Mean
	}
	if s, ok := valueStats(contractValues); ok {
		f.ERC20MinValSentContract = s.Min
		f.ERC20MaxValSentContract = s.Max
		f.ERC20AvgValSentContract = s.Mean
	}

	sentSymbols := tokenSymbols(sent)
	receivedSymbols := tokenSymbols(received)

	f.ERC20UniqSentTokenName = uniqueStrings(sentSymbols)
	f.ERC20UniqRecTokenName = uniqueStrings(receivedSymbols)

	if top, ok := mostFrequent(sentSymbols); ok {
		f.ERC20MostSentTokenType = top
	}
	if top, ok := mostFrequent(receivedSymbols); ok {
		f.ERC20MostRecTokenType = top
	}
}

// balanceEther converts a wei balance string to ether. An empty balance
// means zero; anything else must be a base-10 integer.
func balanceEther(wei string) (float64, error) {
	if wei == "" {
		return 0, nil
	}
	i, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBalance, wei)
	}
	f, _ := new(big.Float).SetInt(i).Float64()
	return f / params.Ether, nil
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
