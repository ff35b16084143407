// Package sentiment scores review text with the VADER lexicon and maps the
// normalised compound score onto Positive, Negative or Neutral.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"

	"shoprag/internal/domain"
)

const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Analyzer is a deterministic lexicon-based sentiment classifier.
// It only reads its lexicon after construction, so it is safe for concurrent use.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer loads the lexicon and returns a ready to use analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

var _ domain.SentimentClassifier = (*Analyzer)(nil)

// Classify maps text to a sentiment label using the compound score.
func (a *Analyzer) Classify(text string) domain.Sentiment {
	return Label(a.PolarityScores(text).Compound)
}

// Label applies the compound thresholds.
func Label(compound float64) domain.Sentiment {
	switch {
	case compound >= positiveThreshold:
		return domain.SentimentPositive
	case compound <= negativeThreshold:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// PolarityScores returns the positive, negative, neutral proportions and the
// compound polarity in [-1, 1]. Blank text scores zero everywhere.
func (a *Analyzer) PolarityScores(text string) govader.Sentiment {
	if strings.TrimSpace(text) == "" {
		return govader.Sentiment{}
	}
	return a.vader.PolarityScores(text)
}
