package domain

// NeutralSentiment is used when no sentiment reading is available.
const NeutralSentiment = 0.5

// RegimeParameters is the scalar market context supplied fresh per call.
type RegimeParameters struct {
	Volatility           float64  // [0,1]
	ExternalCorrelation  float64  // [0,1], correlation with a reference market
	ExternalMarketChange float64  // [-1,1], last move of the reference market
	Sentiment            *float64 // [0,1]; nil = neutral
	IsEcoAsset           bool
	IsClawbackEnabled    bool
}

// SentimentOrNeutral returns the sentiment reading, or 0.5 when absent.
func (r RegimeParameters) SentimentOrNeutral() float64 {
	if r.Sentiment == nil {
		return NeutralSentiment
	}
	return Clamp(*r.Sentiment, 0, 1)
}

// WithSentiment returns a copy of r carrying the given sentiment reading.
func (r RegimeParameters) WithSentiment(s float64) RegimeParameters {
	r.Sentiment = &s
	return r
}
