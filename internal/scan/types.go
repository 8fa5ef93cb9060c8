package scan

import "time"

// Side classifies a scored instrument.
type Side string

const (
	SideBuy  Side = "BUY"
	SideHold Side = "HOLD"
	SidePass Side = "PASS"
)

// Signal is the scored output for one instrument in one scan pass. It
// is created fresh each scan and overwrites any earlier record for the
// same ticker. Reasons keep evaluation order; Score is the sum of the
// weights behind them.
type Signal struct {
	Ticker  string                 `json:"ticker"`
	Side    Side                   `json:"side"`
	Reasons []string               `json:"reasons"`
	Score   float64                `json:"score"`
	Px      float64                `json:"px"`
	AsOf    time.Time              `json:"asof"`
	Extras  map[string]interface{} `json:"extras"`
}

// placeholderSignal marks a symbol as scanned when no data could be
// obtained, so a queue pass never retries it.
func placeholderSignal(ticker string) Signal {
	return Signal{
		Ticker:  ticker,
		Side:    SideHold,
		Reasons: []string{},
		Score:   0,
		Px:      0,
		AsOf:    time.Now().UTC(),
		Extras:  map[string]interface{}{},
	}
}

type factorStatus int

const (
	factorAbstained factorStatus = iota
	factorFired
	factorFailed
)

// factorResult is one factor's contribution. A failed factor carries a
// diagnostic but behaves like an abstention: no reasons, no weight, and
// never aborts the remaining factors.
type factorResult struct {
	status  factorStatus
	reasons []string
	weight  float64
	err     error
}

func abstained() factorResult {
	return factorResult{status: factorAbstained}
}

func failed(err error) factorResult {
	return factorResult{status: factorFailed, err: err}
}

func (r factorResult) fire(weight float64, reason string) factorResult {
	r.status = factorFired
	r.weight += weight
	r.reasons = append(r.reasons, reason)
	return r
}
