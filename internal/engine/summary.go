package engine

import "trade-recon/internal/validation"

// Summary aggregates a batch of verdicts.
type Summary struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// Summarize counts verdicts per status. SuccessRate is a percentage rounded to two decimals.
func Summarize(verdicts []validation.Verdict) Summary {
	var s Summary
	for _, v := range verdicts {
		s.Total++
		switch v.Status {
		case validation.StatusSuccess:
			s.Success++
		case validation.StatusFailed:
			s.Failed++
		case validation.StatusPending:
			s.Pending++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(int(float64(s.Success)/float64(s.Total)*10000+0.5)) / 100
	}
	return s
}
