package insights

import "github.com/sahti/patient-portal/pkg/types"

// Score penalties and bonuses. The score is an additive wellness
// heuristic over self-reported data, not a clinical risk model.
const (
	penaltySmoker          = 20
	penaltyChronicDiseases = 15
	penaltyOlderAge        = 10
	penaltyPriorConditions = 10
	penaltyWarningMetric   = 5
	penaltyDangerMetric    = 15

	bonusYoungAge     = 5
	bonusNonSmoker    = 10
	bonusNormalMetric = 2

	olderAgeThreshold = 60
	youngAgeThreshold = 30
)

// ComputeScore derives the 0-100 health score from the profile risk
// factors and the classified metrics. The computation is a pure sum;
// clamping to [0, 100] happens last.
func ComputeScore(profile *types.PatientProfile, metrics []types.HealthMetric) int {
	score := 100

	if profile != nil {
		if profile.IsSmoker {
			score -= penaltySmoker
		} else {
			score += bonusNonSmoker
		}
		if profile.ChronicDiseases != "" {
			score -= penaltyChronicDiseases
		}
		if profile.Age > olderAgeThreshold {
			score -= penaltyOlderAge
		}
		if profile.PreviousConditions != "" {
			score -= penaltyPriorConditions
		}
		if profile.Age > 0 && profile.Age < youngAgeThreshold {
			score += bonusYoungAge
		}
	}

	for _, metric := range metrics {
		switch metric.Status {
		case types.StatusWarning:
			score -= penaltyWarningMetric
		case types.StatusDanger:
			score -= penaltyDangerMetric
		case types.StatusNormal:
			score += bonusNormalMetric
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
