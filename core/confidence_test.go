package core

import (
	"math"
	"testing"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
)

func TestScoreConfidence(t *testing.T) {
	weights := schema.DefaultConfidenceWeights()

	tests := []struct {
		name  string
		in    ConfidenceInput
		check func(t *testing.T, total float64, b schema.ConfidenceBreakdown)
	}{
		{
			name: "empty evidence",
			in:   ConfidenceInput{TimingUncertainty: 60},
			check: func(t *testing.T, total float64, b schema.ConfidenceBreakdown) {
				assert.Zero(t, b.DataCompleteness)
				assert.Zero(t, b.MethodologyReliability)
				assert.InDelta(t, 1.0, b.ConfoundControl, 1e-9)
				assert.Zero(t, b.TimingAccuracy)
				assert.InDelta(t, 0.2, total, 1e-9)
			},
		},
		{
			name: "completeness scales with coverage and adequacy",
			in: ConfidenceInput{
				Coverages:      []*float64{ptr(1), ptr(0.8), nil, ptr(0.6)},
				UsableEvents:   3,
				RequiredEvents: 6,
			},
			check: func(t *testing.T, _ float64, b schema.ConfidenceBreakdown) {
				assert.InDelta(t, 0.6*0.5, b.DataCompleteness, 1e-9)
			},
		},
		{
			name: "descriptive reliability from standard error",
			in: ConfidenceInput{
				ExposureValues: []float64{40, 50, 60},
			},
			check: func(t *testing.T, _ float64, b schema.ConfidenceBreakdown) {
				se := 10 / math.Sqrt(3)
				assert.InDelta(t, 1-se/50, b.MethodologyReliability, 1e-9)
			},
		},
		{
			name: "comparative reliability saturates on large effect",
			in: ConfidenceInput{
				Comparative:      true,
				ExposureValues:   []float64{80, 82, 84, 86, 88, 90},
				ComparisonValues: []float64{40, 42, 44, 46, 48, 50},
			},
			check: func(t *testing.T, _ float64, b schema.ConfidenceBreakdown) {
				assert.InDelta(t, 1.0, b.MethodologyReliability, 1e-9)
			},
		},
		{
			name: "comparative reliability needs two per group",
			in: ConfidenceInput{
				Comparative:      true,
				ExposureValues:   []float64{80},
				ComparisonValues: []float64{40, 42},
			},
			check: func(t *testing.T, _ float64, b schema.ConfidenceBreakdown) {
				assert.Zero(t, b.MethodologyReliability)
			},
		},
		{
			name: "confounders reduce control",
			in:   ConfidenceInput{Uncontrolled: 3},
			check: func(t *testing.T, _ float64, b schema.ConfidenceBreakdown) {
				assert.InDelta(t, 0.25, b.ConfoundControl, 1e-9)
			},
		},
		{
			name: "timing from annotation quality",
			in:   ConfidenceInput{AnnotationQuality: []float64{0.5, 0.5}, TimingUncertainty: 60},
			check: func(t *testing.T, _ float64, b schema.ConfidenceBreakdown) {
				assert.InDelta(t, 0.5, b.TimingAccuracy, 1e-9)
			},
		},
		{
			name: "perfect evidence",
			in: ConfidenceInput{
				Coverages:         []*float64{ptr(1), ptr(1)},
				UsableEvents:      10,
				RequiredEvents:    10,
				ExposureValues:    []float64{50, 50.5, 49.5, 50.2},
				AnnotationQuality: []float64{1, 1},
				TimingUncertainty: 60,
			},
			check: func(t *testing.T, total float64, b schema.ConfidenceBreakdown) {
				assert.InDelta(t, 1.0, b.DataCompleteness, 1e-9)
				assert.Greater(t, b.MethodologyReliability, 0.98)
				assert.InDelta(t, 1.0, b.TimingAccuracy, 1e-9)
				assert.Greater(t, total, 0.99)
				assert.LessOrEqual(t, total, 1.0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, b := ScoreConfidence(tt.in, weights)
			assert.Equal(t, weights, b.Weights)
			for _, v := range []float64{total, b.DataCompleteness, b.MethodologyReliability, b.ConfoundControl, b.TimingAccuracy} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
			tt.check(t, total, b)
		})
	}
}
