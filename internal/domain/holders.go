package domain

import "sort"

// Holder is one wallet's position in a single outcome token.
type Holder struct {
	Wallet       string  `json:"proxyWallet"`
	Name         string  `json:"name,omitempty"`
	Pseudonym    string  `json:"pseudonym,omitempty"`
	Amount       float64 `json:"amount"`
	OutcomeIndex int     `json:"outcomeIndex"`
}

// HolderBuckets groups a market's holders by outcome side.
type HolderBuckets struct {
	Yes []Holder `json:"yesHolders"`
	No  []Holder `json:"noHolders"`
}

// BucketHolders splits holders into YES (outcome index 0) and NO (outcome
// index 1) buckets, each sorted by amount descending. Holders with any
// other outcome index are dropped.
func BucketHolders(holders []Holder) HolderBuckets {
	var b HolderBuckets
	for _, h := range holders {
		switch h.OutcomeIndex {
		case 0:
			b.Yes = append(b.Yes, h)
		case 1:
			b.No = append(b.No, h)
		}
	}
	sort.SliceStable(b.Yes, func(i, j int) bool { return b.Yes[i].Amount > b.Yes[j].Amount })
	sort.SliceStable(b.No, func(i, j int) bool { return b.No[i].Amount > b.No[j].Amount })
	return b
}
