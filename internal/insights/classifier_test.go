package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahti/patient-portal/internal/extraction"
	"github.com/sahti/patient-portal/pkg/types"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func findMetric(t *testing.T, metrics []types.HealthMetric, name string) types.HealthMetric {
	t.Helper()
	for _, m := range metrics {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("metric %q not found", name)
	return types.HealthMetric{}
}

func TestClassify_BloodSugarBoundaries(t *testing.T) {
	cases := []struct {
		sugar  int
		status types.MetricStatus
	}{
		{140, types.StatusNormal},
		{141, types.StatusWarning},
		{200, types.StatusWarning},
		{201, types.StatusDanger},
	}

	for _, tc := range cases {
		data := extraction.ExtractedData{BloodSugar: intPtr(tc.sugar)}
		metrics := Classify(data, nil, time.Now())

		require.Len(t, metrics, 1)
		assert.Equal(t, tc.status, metrics[0].Status, "sugar=%d", tc.sugar)
	}
}

func TestClassify_BloodSugarDiabeticThresholds(t *testing.T) {
	diabetic := &types.PatientProfile{ChronicDiseases: "مرض السكري"}
	data := extraction.ExtractedData{BloodSugar: intPtr(190)}

	metrics := Classify(data, diabetic, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusWarning, metrics[0].Status)

	// Same value without the diabetes marker is still a warning, but 201
	// flips to danger only for the non-diabetic table.
	metrics = Classify(extraction.ExtractedData{BloodSugar: intPtr(201)}, diabetic, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusWarning, metrics[0].Status)

	metrics = Classify(extraction.ExtractedData{BloodSugar: intPtr(251)}, diabetic, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusDanger, metrics[0].Status)
}

func TestClassify_BloodPressure(t *testing.T) {
	observed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	data := extraction.ExtractedData{
		BloodPressure: &extraction.BloodPressure{Systolic: 145, Diastolic: 85},
	}

	metrics := Classify(data, nil, observed)
	require.Len(t, metrics, 1)

	bp := metrics[0]
	assert.Equal(t, MetricBloodPressure, bp.Name)
	assert.Equal(t, types.StatusDanger, bp.Status)
	assert.Equal(t, 145.0, bp.Value)
	assert.Equal(t, "145/85 ملم زئبق", bp.Unit)
	assert.Equal(t, observed, bp.ObservedAt)
}

func TestClassify_BloodPressureDiastolicAlone(t *testing.T) {
	data := extraction.ExtractedData{
		BloodPressure: &extraction.BloodPressure{Systolic: 118, Diastolic: 92},
	}

	metrics := Classify(data, nil, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusDanger, metrics[0].Status)
}

func TestClassify_HeartRateSmokerShift(t *testing.T) {
	data := extraction.ExtractedData{HeartRate: intPtr(85)}

	metrics := Classify(data, &types.PatientProfile{IsSmoker: false}, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusNormal, metrics[0].Status)

	metrics = Classify(data, &types.PatientProfile{IsSmoker: true}, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusWarning, metrics[0].Status)
	assert.Equal(t, types.TrendUp, metrics[0].Trend)
}

func TestClassify_HeartRateBradycardia(t *testing.T) {
	data := extraction.ExtractedData{HeartRate: intPtr(45)}

	metrics := Classify(data, &types.PatientProfile{}, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusWarning, metrics[0].Status)

	metrics = Classify(data, &types.PatientProfile{ChronicDiseases: "ارتفاع ضغط الدم"}, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, types.StatusDanger, metrics[0].Status)
}

func TestClassify_BMIRounding(t *testing.T) {
	data := extraction.ExtractedData{BMI: floatPtr(22.857142)}

	metrics := Classify(data, nil, time.Now())
	require.Len(t, metrics, 1)
	assert.Equal(t, 22.9, metrics[0].Value)
	assert.Equal(t, types.StatusNormal, metrics[0].Status)
	assert.Equal(t, types.SourceCalculated, metrics[0].Source)
}

func TestClassify_OutputOrderStable(t *testing.T) {
	data := extraction.ExtractedData{
		BloodPressure:    &extraction.BloodPressure{Systolic: 120, Diastolic: 80},
		HeartRate:        intPtr(70),
		BloodSugar:       intPtr(100),
		BMI:              floatPtr(23),
		Temperature:      floatPtr(36.8),
		OxygenSaturation: intPtr(98),
		Creatinine:       floatPtr(1.0),
		Hemoglobin:       floatPtr(14),
	}

	metrics := Classify(data, nil, time.Now())
	require.Len(t, metrics, 8)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{
		MetricBloodPressure,
		MetricHeartRate,
		MetricBloodSugar,
		MetricBMI,
		MetricTemperature,
		MetricOxygen,
		MetricCreatinine,
		MetricHemoglobin,
	}, names)
}

func TestClassify_EmptyDataYieldsNoMetrics(t *testing.T) {
	metrics := Classify(extraction.ExtractedData{}, &types.PatientProfile{}, time.Now())
	assert.Empty(t, metrics)
}

func TestClassify_Idempotent(t *testing.T) {
	data := extraction.ExtractedData{
		HeartRate:  intPtr(101),
		BloodSugar: intPtr(150),
	}
	profile := &types.PatientProfile{IsSmoker: true}
	observed := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	first := Classify(data, profile, observed)
	second := Classify(data, profile, observed)
	assert.Equal(t, first, second)
}

func TestHasDiabetesMarker(t *testing.T) {
	assert.True(t, HasDiabetesMarker("السكري"))
	assert.True(t, HasDiabetesMarker("Type 2 Diabetes"))
	assert.True(t, HasDiabetesMarker("diabetic since 2019"))
	assert.False(t, HasDiabetesMarker("ارتفاع ضغط الدم"))
	assert.False(t, HasDiabetesMarker(""))
}
