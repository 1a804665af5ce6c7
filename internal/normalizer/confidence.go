package normalizer

import (
	"math"
	"strings"

	"invoicescan/internal/domain"
)

// invoiceDocumentType is the classification label preferred when several types are detected.
const invoiceDocumentType = "INVOICE"

// classificationConfidence returns the invoice classification score. When no
// candidate is labeled INVOICE the highest-scoring candidate is used. Missing
// scores count as 0.
func classificationConfidence(types []domain.DetectedDocumentType) float64 {
	best := 0.0
	for _, t := range types {
		score := 0.0
		if t.Confidence != nil {
			score = *t.Confidence
		}
		if strings.EqualFold(t.DocumentType, invoiceDocumentType) {
			return score
		}
		if score > best {
			best = score
		}
	}
	return best
}

// averageConfidence is the mean of scores rounded to three decimals, 0 when empty.
func averageConfidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return math.Round(sum/float64(len(scores))*1000) / 1000
}
