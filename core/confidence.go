package core

import (
	"math"

	"github.com/huangsam/cgmlens/core/algo"
	"github.com/huangsam/cgmlens/schema"
)

// Detectability reference: |d|*sqrt(n/2) of 2.8 gives roughly 80% power at alpha 0.05.
const detectableEffect = 2.8

// Timing uncertainty at which the timing sub-score halves.
const timingHalfMinutes = 30.0

// ConfidenceInput holds the evidence the four sub-scores are computed from.
type ConfidenceInput struct {
	// Coverages are outcome coverages of qualifying events; nil counts as zero.
	Coverages         []*float64
	UsableEvents      int
	RequiredEvents    int
	ExposureValues    []float64
	ComparisonValues  []float64
	Comparative       bool
	Uncontrolled      int
	AnnotationQuality []float64
	TimingUncertainty float64
}

// ScoreConfidence computes the weighted confidence and its breakdown. Every sub-score is
// clamped to [0,1] before weighting and the total is clamped again.
func ScoreConfidence(in ConfidenceInput, weights schema.ConfidenceWeights) (float64, schema.ConfidenceBreakdown) {
	b := schema.ConfidenceBreakdown{
		DataCompleteness:       algo.Clamp01(completenessScore(in)),
		MethodologyReliability: algo.Clamp01(methodologyScore(in)),
		ConfoundControl:        algo.Clamp01(1 / (1 + float64(in.Uncontrolled))),
		TimingAccuracy:         algo.Clamp01(timingScore(in)),
		Weights:                weights,
	}
	total := weights.DataCompleteness*b.DataCompleteness +
		weights.MethodologyReliability*b.MethodologyReliability +
		weights.ConfoundControl*b.ConfoundControl +
		weights.TimingAccuracy*b.TimingAccuracy
	return algo.Clamp01(total), b
}

func completenessScore(in ConfidenceInput) float64 {
	if len(in.Coverages) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range in.Coverages {
		if c != nil {
			sum += *c
		}
	}
	meanCoverage := sum / float64(len(in.Coverages))
	adequacy := 1.0
	if in.RequiredEvents > 0 {
		adequacy = math.Min(1, float64(in.UsableEvents)/float64(in.RequiredEvents))
	}
	return meanCoverage * adequacy
}

func methodologyScore(in ConfidenceInput) float64 {
	if in.Comparative {
		d, ok := algo.CohensD(in.ExposureValues, in.ComparisonValues)
		if !ok {
			return 0
		}
		n := algo.HarmonicMean2(len(in.ExposureValues), len(in.ComparisonValues))
		return math.Min(1, math.Abs(d)*math.Sqrt(n/2)/detectableEffect)
	}
	if len(in.ExposureValues) < 2 {
		return 0
	}
	mean, sd := algo.SampleMeanStdDev(in.ExposureValues)
	if mean == 0 {
		return 0
	}
	se := sd / math.Sqrt(float64(len(in.ExposureValues)))
	return 1 - math.Min(1, se/math.Abs(mean))
}

func timingScore(in ConfidenceInput) float64 {
	if len(in.AnnotationQuality) == 0 {
		return 0
	}
	u := (1 - algo.Mean(in.AnnotationQuality)) * in.TimingUncertainty
	return 1 / (1 + u/timingHalfMinutes)
}
