package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sahti/patient-portal/pkg/types"
)

func TestComputeScore_EmptyInputs(t *testing.T) {
	// Non-smoker bonus applies even with no metrics, then clamps to 100.
	assert.Equal(t, 100, ComputeScore(&types.PatientProfile{}, nil))
	assert.Equal(t, 100, ComputeScore(nil, nil))
}

func TestComputeScore_RiskFactors(t *testing.T) {
	profile := &types.PatientProfile{
		Age:                65,
		IsSmoker:           true,
		ChronicDiseases:    "السكري",
		PreviousConditions: "جراحة سابقة",
	}

	// 100 - 20 - 15 - 10 - 10 = 45
	assert.Equal(t, 45, ComputeScore(profile, nil))
}

func TestComputeScore_YoungNonSmokerCapped(t *testing.T) {
	profile := &types.PatientProfile{Age: 25}
	metrics := []types.HealthMetric{
		{Status: types.StatusNormal},
		{Status: types.StatusNormal},
	}

	// 100 + 10 + 5 + 2 + 2 clamps to exactly 100.
	assert.Equal(t, 100, ComputeScore(profile, metrics))
}

func TestComputeScore_ClampsToZero(t *testing.T) {
	profile := &types.PatientProfile{
		Age:                70,
		IsSmoker:           true,
		ChronicDiseases:    "السكري",
		PreviousConditions: "قصور كلوي",
	}

	metrics := make([]types.HealthMetric, 10)
	for i := range metrics {
		metrics[i] = types.HealthMetric{Status: types.StatusDanger}
	}

	// 45 - 150 would be negative; the result clamps to exactly 0.
	assert.Equal(t, 0, ComputeScore(profile, metrics))
}

func TestComputeScore_MixedMetrics(t *testing.T) {
	profile := &types.PatientProfile{Age: 40}
	metrics := []types.HealthMetric{
		{Status: types.StatusNormal},
		{Status: types.StatusWarning},
		{Status: types.StatusDanger},
	}

	// 100 + 10 + 2 - 5 - 15 = 92
	assert.Equal(t, 92, ComputeScore(profile, metrics))
}

func TestComputeScore_AgeBoundaries(t *testing.T) {
	// 60 is not "older", 61 is. 30 is not "young", 29 is. Age 0 means
	// unknown and earns nothing.
	assert.Equal(t, 100, ComputeScore(&types.PatientProfile{Age: 60}, nil))
	assert.Equal(t, 100, ComputeScore(&types.PatientProfile{Age: 61}, nil)) // 100+10-10
	assert.Equal(t, 100, ComputeScore(&types.PatientProfile{Age: 29}, nil))
	assert.Equal(t, 100, ComputeScore(&types.PatientProfile{Age: 0}, nil))

	smoker61 := &types.PatientProfile{Age: 61, IsSmoker: true}
	assert.Equal(t, 70, ComputeScore(smoker61, nil)) // 100-20-10
}
