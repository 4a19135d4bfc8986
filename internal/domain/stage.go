package domain

// Stage is the discrete lifecycle classification of a meme ticker.
type Stage string

const (
	StageStart          Stage = "Start"
	StageRisingInterest Stage = "Rising Interest"
	StageStockRising    Stage = "Stock Rising"
	StageEstimatedPeak  Stage = "Within Estimated Peak"
	StageDoNotBuy       Stage = "DO NOT BUY"
	StageDropping       Stage = "Dropping"
)

// Negative reports whether the stage warns against entering a position.
func (s Stage) Negative() bool {
	return s == StageDoNotBuy || s == StageDropping
}

// Terminal reports whether the stage ends the current activity window.
// A ticker in a terminal stage re-enters Start only after eviction and
// re-creation.
func (s Stage) Terminal() bool {
	return s == StageDropping
}
