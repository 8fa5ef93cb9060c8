package universe

// Built-in seed lists, the last rung of the auto-universe cascade. Kept
// deliberately small; they only exist so a scan can still run when every
// remote source and local file is unavailable.
var (
	seedSP500 = []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "BRK-B", "LLY",
		"JPM", "V", "XOM", "UNH", "JNJ", "MA", "HD",
	}
	seedASX200 = []string{
		"CBA.AX", "BHP.AX", "CSL.AX", "NAB.AX", "WBC.AX", "ANZ.AX",
		"WES.AX", "WOW.AX", "TLS.AX", "WDS.AX",
	}
)

func seedFor(base string) []string {
	if base == "sp500" {
		return append([]string(nil), seedSP500...)
	}
	return append([]string(nil), seedASX200...)
}
