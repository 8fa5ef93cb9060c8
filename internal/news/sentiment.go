package news

import (
	"math"
	"strings"
)

// Finance-leaning word valences. Scores are summed per headline and
// squashed into [-1, 1] so thresholds stay comparable across headline
// lengths.
var sentimentLexicon = map[string]float64{
	"beat": 1.6, "beats": 1.6, "upgrade": 1.8, "upgraded": 1.8,
	"surge": 1.7, "surges": 1.7, "rally": 1.5, "rallies": 1.5,
	"soar": 1.8, "soars": 1.8, "jump": 1.3, "jumps": 1.3,
	"gain": 1.2, "gains": 1.2, "growth": 1.3, "record": 1.4,
	"strong": 1.3, "profit": 1.2, "profits": 1.2, "bullish": 1.6,
	"outperform": 1.5, "buy": 1.1, "boost": 1.2, "boosts": 1.2,
	"raise": 1.1, "raises": 1.1, "raised": 1.1, "exceed": 1.4,
	"exceeds": 1.4, "expand": 1.0, "expands": 1.0, "approval": 1.3,
	"win": 1.3, "wins": 1.3, "breakthrough": 1.6, "momentum": 1.0,
	"recover": 1.2, "recovers": 1.2, "recovery": 1.2, "optimistic": 1.4,

	"miss": -1.6, "misses": -1.6, "missed": -1.6, "downgrade": -1.8,
	"downgraded": -1.8, "plunge": -1.9, "plunges": -1.9, "fall": -1.2,
	"falls": -1.2, "fell": -1.2, "drop": -1.2, "drops": -1.2,
	"loss": -1.4, "losses": -1.4, "weak": -1.3, "bearish": -1.6,
	"underperform": -1.5, "sell": -1.1, "slump": -1.6, "slumps": -1.6,
	"crash": -2.0, "crashes": -2.0, "cut": -1.1, "cuts": -1.1,
	"lawsuit": -1.5, "probe": -1.4, "investigation": -1.4, "fraud": -2.1,
	"recall": -1.3, "warning": -1.4, "warns": -1.4, "bankruptcy": -2.2,
	"default": -1.8, "decline": -1.3, "declines": -1.3, "layoffs": -1.6,
	"halt": -1.3, "halted": -1.3, "slide": -1.2, "slides": -1.2,
	"concern": -1.1, "concerns": -1.1, "pessimistic": -1.4,
}

var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "without": {}, "hardly": {},
}

const negationDampener = -0.74

// scoreText scores one headline plus summary, normalized to [-1, 1].
func scoreText(text string) float64 {
	var sum float64
	prevNegated := false
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?'\"()[]")
		if _, ok := negators[tok]; ok {
			prevNegated = true
			continue
		}
		if v, ok := sentimentLexicon[tok]; ok {
			if prevNegated {
				v *= negationDampener
			}
			sum += v
		}
		prevNegated = false
	}
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+15)
}
