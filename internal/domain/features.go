package domain

// FeatureVector holds the 47 behavioral features the fraud classifier was
// trained on: 45 numeric features plus the two most-frequent token types.
// Column names and ordering are frozen by the training data, including its
// spelling quirks (trailing/leading spaces, the ".1" duplicate, the
// underscored last column). Never rename a column without retraining.
type FeatureVector struct {
	AvgMinBetweenSentTnx    float64
	AvgMinBetweenRecTnx     float64
	TimeDiffFirstLastMins   float64
	SentTnx                 float64
	ReceivedTnx             float64
	TotalTransactions       float64
	CreatedContracts        float64
	UniqueReceivedFrom      float64
	UniqueSentTo            float64
	MinValueReceived        float64
	MaxValueReceived        float64
	AvgValueReceived        float64
	MinValSent              float64
	MaxValSent              float64
	AvgValSent              float64
	TotalEtherSent          float64
	TotalEtherReceived      float64
	TotalEtherBalance       float64
	MinValueSentToContract  float64
	MaxValSentToContract    float64
	AvgValueSentToContract  float64
	TotalEtherSentContracts float64

	ERC20TotalTnxs                 float64
	ERC20TotalEtherReceived        float64
	ERC20TotalEtherSent            float64
	ERC20TotalEtherSentContract    float64
	ERC20UniqSentAddr              float64
	ERC20UniqRecAddr               float64
	ERC20UniqSentContractAddr      float64
	ERC20UniqRecContractAddr       float64
	ERC20AvgTimeBetweenSentTnx     float64
	ERC20AvgTimeBetweenRecTnx      float64
	ERC20AvgTimeBetweenRec2Tnx     float64
	ERC20AvgTimeBetweenContractTnx float64
	ERC20MinValRec                 float64
	ERC20MaxValRec                 float64
	ERC20AvgValRec                 float64
	ERC20MinValSent                float64
	ERC20MaxValSent                float64
	ERC20AvgValSent                float64
	ERC20MinValSentContract        float64
	ERC20MaxValSentContract        float64
	ERC20AvgValSentContract        float64
	ERC20UniqSentTokenName         float64
	ERC20UniqRecTokenName          float64

	ERC20MostSentTokenType string
	ERC20MostRecTokenType  string
}

// FeatureCount is the width of the model input vector.
const FeatureCount = 47

// NumericFeatureCount is the number of non-categorical columns.
const NumericFeatureCount = 45

// featureColumn binds a training-data column name to its struct field.
type featureColumn struct {
	Name        string
	Categorical bool
	Get         func(*FeatureVector) any
	SetNum      func(*FeatureVector, float64)
}

// featureSchema is the single source of truth for column order.
var featureSchema = []featureColumn{
	{Name: "Avg min between sent tnx", Get: func(f *FeatureVector) any { return f.AvgMinBetweenSentTnx }, SetNum: func(f *FeatureVector, v float64) { f.AvgMinBetweenSentTnx = v }},
	{Name: "Avg min between received tnx", Get: func(f *FeatureVector) any { return f.AvgMinBetweenRecTnx }, SetNum: func(f *FeatureVector, v float64) { f.AvgMinBetweenRecTnx = v }},
	{Name: "Time Diff between first and last (Mins)", Get: func(f *FeatureVector) any { return f.TimeDiffFirstLastMins }, SetNum: func(f *FeatureVector, v float64) { f.TimeDiffFirstLastMins = v }},
	{Name: "Sent tnx", Get: func(f *FeatureVector) any { return f.SentTnx }, SetNum: func(f *FeatureVector, v float64) { f.SentTnx = v }},
	{Name: "Received Tnx", Get: func(f *FeatureVector) any { return f.ReceivedTnx }, SetNum: func(f *FeatureVector, v float64) { f.ReceivedTnx = v }},
	{Name: "total transactions (including tnx to create contract", Get: func(f *FeatureVector) any { return f.TotalTransactions }, SetNum: func(f *FeatureVector, v float64) { f.TotalTransactions = v }},
	{Name: "Number of Created Contracts", Get: func(f *FeatureVector) any { return f.CreatedContracts }, SetNum: func(f *FeatureVector, v float64) { f.CreatedContracts = v }},
	{Name: "Unique Received From Addresses", Get: func(f *FeatureVector) any { return f.UniqueReceivedFrom }, SetNum: func(f *FeatureVector, v float64) { f.UniqueReceivedFrom = v }},
	{Name: "Unique Sent To Addresses", Get: func(f *FeatureVector) any { return f.UniqueSentTo }, SetNum: func(f *FeatureVector, v float64) { f.UniqueSentTo = v }},
	{Name: "min value received", Get: func(f *FeatureVector) any { return f.MinValueReceived }, SetNum: func(f *FeatureVector, v float64) { f.MinValueReceived = v }},
	{Name: "max value received ", Get: func(f *FeatureVector) any { return f.MaxValueReceived }, SetNum: func(f *FeatureVector, v float64) { f.MaxValueReceived = v }},
	{Name: "avg val received", Get: func(f *FeatureVector) any { return f.AvgValueReceived }, SetNum: func(f *FeatureVector, v float64) { f.AvgValueReceived = v }},
	{Name: "min val sent", Get: func(f *FeatureVector) any { return f.MinValSent }, SetNum: func(f *FeatureVector, v float64) { f.MinValSent = v }},
	{Name: "max val sent", Get: func(f *FeatureVector) any { return f.MaxValSent }, SetNum: func(f *FeatureVector, v float64) { f.MaxValSent = v }},
	{Name: "avg val sent", Get: func(f *FeatureVector) any { return f.AvgValSent }, SetNum: func(f *FeatureVector, v float64) { f.AvgValSent = v }},
	{Name: "total Ether sent", Get: func(f *FeatureVector) any { return f.TotalEtherSent }, SetNum: func(f *FeatureVector, v float64) { f.TotalEtherSent = v }},
	{Name: "total ether received", Get: func(f *FeatureVector) any { return f.TotalEtherReceived }, SetNum: func(f *FeatureVector, v float64) { f.TotalEtherReceived = v }},
	{Name: "total ether balance", Get: func(f *FeatureVector) any { return f.TotalEtherBalance }, SetNum: func(f *FeatureVector, v float64) { f.TotalEtherBalance = v }},
	{Name: "min value sent to contract", Get: func(f *FeatureVector) any { return f.MinValueSentToContract }, SetNum: func(f *FeatureVector, v float64) { f.MinValueSentToContract = v }},
	{Name: "max val sent to contract", Get: func(f *FeatureVector) any { return f.MaxValSentToContract }, SetNum: func(f *FeatureVector, v float64) { f.MaxValSentToContract = v }},
	{Name: "avg value sent to contract", Get: func(f *FeatureVector) any { return f.AvgValueSentToContract }, SetNum: func(f *FeatureVector, v float64) { f.AvgValueSentToContract = v }},
	{Name: "total ether sent contracts", Get: func(f *FeatureVector) any { return f.TotalEtherSentContracts }, SetNum: func(f *FeatureVector, v float64) { f.TotalEtherSentContracts = v }},
	{Name: " Total ERC20 tnxs", Get: func(f *FeatureVector) any { return f.ERC20TotalTnxs }, SetNum: func(f *FeatureVector, v float64) { f.ERC20TotalTnxs = v }},
	{Name: " ERC20 total Ether received", Get: func(f *FeatureVector) any { return f.ERC20TotalEtherReceived }, SetNum: func(f *FeatureVector, v float64) { f.ERC20TotalEtherReceived = v }},
	{Name: " ERC20 total ether sent", Get: func(f *FeatureVector) any { return f.ERC20TotalEtherSent }, SetNum: func(f *FeatureVector, v float64) { f.ERC20TotalEtherSent = v }},
	{Name: " ERC20 total Ether sent contract", Get: func(f *FeatureVector) any { return f.ERC20TotalEtherSentContract }, SetNum: func(f *FeatureVector, v float64) { f.ERC20TotalEtherSentContract = v }},
	{Name: " ERC20 uniq sent addr", Get: func(f *FeatureVector) any { return f.ERC20UniqSentAddr }, SetNum: func(f *FeatureVector, v float64) { f.ERC20UniqSentAddr = v }},
	{Name: " ERC20 uniq rec addr", Get: func(f *FeatureVector) any { return f.ERC20UniqRecAddr }, SetNum: func(f *FeatureVector, v float64) { f.ERC20UniqRecAddr = v }},
	{Name: " ERC20 uniq sent addr.1", Get: func(f *FeatureVector) any { return f.ERC20UniqSentContractAddr }, SetNum: func(f *FeatureVector, v float64) { f.ERC20UniqSentContractAddr = v }},
	{Name: " ERC20 uniq rec contract addr", Get: func(f *FeatureVector) any { return f.ERC20UniqRecContractAddr }, SetNum: func(f *FeatureVector, v float64) { f.ERC20UniqRecContractAddr = v }},
	{Name: " ERC20 avg time between sent tnx", Get: func(f *FeatureVector) any { return f.ERC20AvgTimeBetweenSentTnx }, SetNum: func(f *FeatureVector, v float64) { f.ERC20AvgTimeBetweenSentTnx = v }},
	{Name: " ERC20 avg time between rec tnx", Get: func(f *FeatureVector) any { return f.ERC20AvgTimeBetweenRecTnx }, SetNum: func(f *FeatureVector, v float64) { f.ERC20AvgTimeBetweenRecTnx = v }},
	{Name: " ERC20 avg time between rec 2 tnx", Get: func(f *FeatureVector) any { return f.ERC20AvgTimeBetweenRec2Tnx }, SetNum: func(f *FeatureVector, v float64) { f.ERC20AvgTimeBetweenRec2Tnx = v }},
	{Name: " ERC20 avg time between contract tnx", Get: func(f *FeatureVector) any { return f.ERC20AvgTimeBetweenContractTnx }, SetNum: func(f *FeatureVector, v float64) { f.ERC20AvgTimeBetweenContractTnx = v }},
	{Name: " ERC20 min val rec", Get: func(f *FeatureVector) any { return f.ERC20MinValRec }, SetNum: func(f *FeatureVector, v float64) { f.ERC20MinValRec = v }},
	{Name: " ERC20 max val rec", Get: func(f *FeatureVector) any { return f.ERC20MaxValRec }, SetNum: func(f *FeatureVector, v float64) { f.ERC20MaxValRec = v }},
	{Name: " ERC20 avg val rec", Get: func(f *FeatureVector) any { return f.ERC20AvgValRec }, SetNum: func(f *FeatureVector, v float64) { f.ERC20AvgValRec = v }},
	{Name: " ERC20 min val sent", Get: func(f *FeatureVector) any { return f.ERC20MinValSent }, SetNum: func(f *FeatureVector, v float64) { f.ERC20MinValSent = v }},
	{Name: " ERC20 max val sent", Get: func(f *FeatureVector) any { return f.ERC20MaxValSent }, SetNum: func(f *FeatureVector, v float64) { f.ERC20MaxValSent = v }},
	{Name: " ERC20 avg val sent", Get: func(f *FeatureVector) any { return f.ERC20AvgValSent }, SetNum: func(f *FeatureVector, v float64) { f.ERC20AvgValSent = v }},
	{Name: " ERC20 min val sent contract", Get: func(f *FeatureVector) any { return f.ERC20MinValSentContract }, SetNum: func(f *FeatureVector, v float64) { f.ERC20MinValSentContract = v }},
	{Name: " ERC20 max val sent contract", Get: func(f *FeatureVector) any { return f.ERC20MaxValSentContract }, SetNum: func(f *FeatureVector, v float64) { f.ERC20MaxValSentContract = v }},
	{Name: " ERC20 avg val sent contract", Get: func(f *FeatureVector) any { return f.ERC20AvgValSentContract }, SetNum: func(f *FeatureVector, v float64) { f.ERC20AvgValSentContract = v }},
	{Name: " ERC20 uniq sent token name", Get: func(f *FeatureVector) any { return f.ERC20UniqSentTokenName }, SetNum: func(f *FeatureVector, v float64) { f.ERC20UniqSentTokenName = v }},
	{Name: " ERC20 uniq rec token name", Get: func(f *FeatureVector) any { return f.ERC20UniqRecTokenName }, SetNum: func(f *FeatureVector, v float64) { f.ERC20UniqRecTokenName = v }},
	{Name: " ERC20 most sent token type", Categorical: true, Get: func(f *FeatureVector) any { return f.ERC20MostSentTokenType }},
	{Name: " ERC20_most_rec_token_type", Categorical: true, Get: func(f *FeatureVector) any { return f.ERC20MostRecTokenType }},
}

// FeatureColumns returns the column names in model input order.
func FeatureColumns() []string {
	names := make([]string, len(featureSchema))
	for i, c := range featureSchema {
		names[i] = c.Name
	}
	return names
}

// CategoricalColumns returns the categorical column names in model order.
func CategoricalColumns() []string {
	var names []string
	for _, c := range featureSchema {
		if c.Categorical {
			names = append(names, c.Name)
		}
	}
	return names
}

// Value returns the raw value of a column by its training-data name,
// or nil when the name is unknown.
func (f *FeatureVector) Value(column string) any {
	for _, c := range featureSchema {
		if c.Name == column {
			return c.Get(f)
		}
	}
	return nil
}

// Numeric returns the 45 numeric values in model order.
func (f *FeatureVector) Numeric() []float64 {
	out := make([]float64, 0, NumericFeatureCount)
	for _, c := range featureSchema {
		if c.Categorical {
			continue
		}
		out = append(out, c.Get(f).(float64))
	}
	return out
}

// Categorical returns the categorical values in model order.
func (f *FeatureVector) Categorical() []string {
	var out []string
	for _, c := range featureSchema {
		if c.Categorical {
			out = append(out, c.Get(f).(string))
		}
	}
	return out
}

// ToMap returns a column-name keyed view of the vector, in no particular
// order. Used by the policy engine and the JSON feature dump.
func (f *FeatureVector) ToMap() map[string]any {
	out := make(map[string]any, FeatureCount)
	for _, c := range featureSchema {
		out[c.Name] = c.Get(f)
	}
	return out
}

// DefaultFeatures returns the training-set medians used when a wallet has
// no on-chain history. A default vector scores like a typical wallet
// instead of an impossible all-zero one.
func DefaultFeatures() FeatureVector {
	return FeatureVector{
		AvgMinBetweenSentTnx:   844.26,
		AvgMinBetweenRecTnx:    4910.29,
		TimeDiffFirstLastMins:  177918.47,
		SentTnx:                10,
		ReceivedTnx:            5,
		TotalTransactions:      15,
		CreatedContracts:       0,
		UniqueReceivedFrom:     3,
		UniqueSentTo:           5,
		MinValueReceived:       0.0,
		MaxValueReceived:       1.0,
		AvgValueReceived:       0.1,
		MinValSent:             0.0,
		MaxValSent:             0.5,
		AvgValSent:             0.1,
		TotalEtherSent:         1.0,
		TotalEtherReceived:     1.0,
		TotalEtherBalance:      0.1,
		ERC20MostSentTokenType: "None",
		ERC20MostRecTokenType:  "None",
	}
}
