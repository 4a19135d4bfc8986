package extract

// DefaultUniverse is the default known-symbol set for plain-token matching.
// Cashtags bypass it, so coverage here only affects unprefixed mentions.
var DefaultUniverse = []string{
	"GME", "AMC", "TSLA", "META", "NVDA", "AMD", "AAPL", "MSFT", "GOOGL", "AMZN",
	"PLTR", "HOOD", "COIN", "SOFI", "CLOV", "WISH", "SNDL", "NOK", "BB", "EXPR",
	"KOSS", "NAKD", "SIRI", "SPY", "QQQ", "IWM", "VIX", "DIA", "TLT", "GLD",
	"SLV", "BABA", "NIO", "XPEV", "LI", "RIVN", "LCID", "F", "GM", "NKLA",
	"RIDE", "SPCE", "ARKK", "MVIS", "SENS", "BNGO", "OCGN", "PROG", "BBIG",
}

// DefaultBlacklist lists tokens that are valid symbols but far more often
// ordinary words or finance jargon. Cashtags override the blacklist.
var DefaultBlacklist = []string{
	"ON", "IT", "ALL", "THE", "AND", "FOR", "ARE", "BUT", "NOT", "YOU",
	"CAN", "ONE", "OUR", "OUT", "DAY", "GET", "HAS", "HOW", "ITS", "MAY",
	"NEW", "NOW", "OLD", "SEE", "TWO", "WHO", "LOL", "OMG", "WTF", "CEO",
	"CFO", "CTO", "IPO", "SEC", "FDA", "NYC", "USA", "EUR", "USD", "GBP",
	"AM", "PM", "AI", "DD", "US", "UK", "EU", "NY", "CA", "LA", "TV",
	"PC", "PR", "HR", "IR", "RE", "PE", "VC", "ROI", "EPS", "A", "I",
}

// CompanyNames maps symbols to display names for snapshot presentation.
var CompanyNames = map[string]string{
	"GME":   "GameStop Corp",
	"AMC":   "AMC Entertainment Holdings Inc",
	"TSLA":  "Tesla Inc",
	"META":  "Meta Platforms Inc",
	"NVDA":  "NVIDIA Corporation",
	"AMD":   "Advanced Micro Devices Inc",
	"AAPL":  "Apple Inc",
	"MSFT":  "Microsoft Corporation",
	"GOOGL": "Alphabet Inc",
	"AMZN":  "Amazon.com Inc",
	"PLTR":  "Palantir Technologies Inc",
	"HOOD":  "Robinhood Markets Inc",
	"COIN":  "Coinbase Global Inc",
	"SOFI":  "SoFi Technologies Inc",
	"NOK":   "Nokia Corporation",
	"BB":    "BlackBerry Limited",
	"KOSS":  "Koss Corporation",
	"BABA":  "Alibaba Group Holding Limited",
	"NIO":   "NIO Inc",
	"RIVN":  "Rivian Automotive Inc",
	"LCID":  "Lucid Group Inc",
	"F":     "Ford Motor Company",
	"GM":    "General Motors Company",
	"SPCE":  "Virgin Galactic Holdings Inc",
	"MVIS":  "MicroVision Inc",
}

// DisplayName returns the company name for a symbol, falling back to the
// symbol itself.
func DisplayName(symbol string) string {
	if name, ok := CompanyNames[symbol]; ok {
		return name
	}
	return symbol
}
