// Package validation checks single trade records against a termsheet and against the rule
// catalog. Every data problem becomes a reason inside the returned Verdict; nothing here
// returns an error for a malformed record.
package validation

import (
	"strings"

	"trade-recon/internal/normalize"
	"trade-recon/internal/trade"
)

// Status is the outcome of validating one trade.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
	StatusPending Status = "Pending"
)

// Display is the label shown to operators; Success reads as "Validated".
func (s Status) Display() string {
	if s == StatusSuccess {
		return "Validated"
	}
	return string(s)
}

// Verdict is the result of validating one trade record.
type Verdict struct {
	TradeID    string   `json:"TradeID"`
	Status     Status   `json:"Status"`
	Reasons    []string `json:"Reasons"`
	AssignedTo string   `json:"AssignedTo"`
}

// Failed reports whether the verdict needs routing to a department.
func (v Verdict) Failed() bool { return v.Status == StatusFailed }

// Summary line used in logs.
func (v Verdict) String() string {
	if len(v.Reasons) == 0 {
		return v.TradeID + " " + v.Status.Display()
	}
	return v.TradeID + " " + v.Status.Display() + ": " + strings.Join(v.Reasons, "; ")
}

// Lookup resolves a canonical trade key (see trade.Key) to its termsheet.
type Lookup func(key string) (trade.Record, bool)

// IndexTermsheets builds a Lookup over termsheets. Termsheets without a TradeID are skipped;
// when two share a key the later one wins.
func IndexTermsheets(termsheets []trade.Record) Lookup {
	index := make(map[string]trade.Record, len(termsheets))
	for _, ts := range termsheets {
		key := trade.Key(ts)
		if key == "" {
			continue
		}
		index[key] = ts
	}
	return func(key string) (trade.Record, bool) {
		ts, ok := index[normalize.Key(key)]
		return ts, ok
	}
}
