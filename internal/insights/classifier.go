package insights

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sahti/patient-portal/internal/extraction"
	"github.com/sahti/patient-portal/pkg/types"
)

// Display names and units are Arabic, matching the web client.
const (
	MetricBloodPressure = "ضغط الدم"
	MetricHeartRate     = "معدل ضربات القلب"
	MetricBloodSugar    = "مستوى السكر"
	MetricBMI           = "مؤشر كتلة الجسم"
	MetricTemperature   = "درجة الحرارة"
	MetricOxygen        = "نسبة الأكسجين"
	MetricCreatinine    = "الكرياتينين"
	MetricHemoglobin    = "الهيموغلوبين"

	unitBPM        = "نبضة/دقيقة"
	unitMgDl       = "ملجم/دل"
	unitKgM2       = "كجم/م²"
	unitCelsius    = "°م"
	unitPercent    = "%"
	unitGramsPerDl = "جم/دل"
)

// Classify converts extracted fields into status-annotated health metrics
// using fixed threshold tables. Profile context shifts two of them: a
// smoker's heart rate is flagged earlier, and a diabetic's blood sugar
// thresholds move up. Output order follows the fixed field list so the
// display is stable across runs.
func Classify(data extraction.ExtractedData, profile *types.PatientProfile, observedAt time.Time) []types.HealthMetric {
	var metrics []types.HealthMetric

	if bp := data.BloodPressure; bp != nil {
		status := types.StatusNormal
		if bp.Systolic > 140 || bp.Diastolic > 90 {
			status = types.StatusDanger
		} else if bp.Systolic > 120 || bp.Diastolic > 80 {
			status = types.StatusWarning
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricBloodPressure,
			Value:      float64(bp.Systolic),
			Unit:       fmt.Sprintf("%d/%d ملم زئبق", bp.Systolic, bp.Diastolic),
			Status:     status,
			Trend:      types.TrendStable,
			ObservedAt: observedAt,
			Source:     types.SourceTestReport,
		})
	}

	if data.HeartRate != nil {
		hr := *data.HeartRate
		status := types.StatusNormal
		trend := types.TrendStable

		switch {
		case hr > 120:
			status = types.StatusDanger
		case hr > 100:
			status = types.StatusWarning
		case hr < 50:
			// Bradycardia alone is a warning; with another risk factor
			// on the profile it is treated as dangerous.
			if profile != nil && (profile.IsSmoker || profile.ChronicDiseases != "") {
				status = types.StatusDanger
			} else {
				status = types.StatusWarning
			}
		}

		if profile != nil && profile.IsSmoker && hr > 80 && status != types.StatusDanger {
			status = types.StatusWarning
			trend = types.TrendUp
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricHeartRate,
			Value:      float64(hr),
			Unit:       unitBPM,
			Status:     status,
			Trend:      trend,
			ObservedAt: observedAt,
			Source:     types.SourceTestReport,
		})
	}

	if data.BloodSugar != nil {
		sugar := *data.BloodSugar
		status := types.StatusNormal

		if profile != nil && HasDiabetesMarker(profile.ChronicDiseases) {
			if sugar > 250 {
				status = types.StatusDanger
			} else if sugar > 180 {
				status = types.StatusWarning
			}
		} else {
			if sugar > 200 {
				status = types.StatusDanger
			} else if sugar > 140 {
				status = types.StatusWarning
			}
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricBloodSugar,
			Value:      float64(sugar),
			Unit:       unitMgDl,
			Status:     status,
			Trend:      types.TrendStable,
			ObservedAt: observedAt,
			Source:     types.SourceTestReport,
		})
	}

	if data.BMI != nil {
		bmi := *data.BMI
		status := types.StatusNormal
		if bmi > 30 {
			status = types.StatusDanger
		} else if bmi > 25 || bmi < 18.5 {
			status = types.StatusWarning
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricBMI,
			Value:      math.Round(bmi*10) / 10,
			Unit:       unitKgM2,
			Status:     status,
			Trend:      types.TrendStable,
			ObservedAt: observedAt,
			Source:     types.SourceCalculated,
		})
	}

	if data.Temperature != nil {
		temp := *data.Temperature
		status := types.StatusNormal
		if temp > 38 {
			status = types.StatusDanger
		} else if temp > 37.5 || temp < 36 {
			status = types.StatusWarning
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricTemperature,
			Value:      temp,
			Unit:       unitCelsius,
			Status:     status,
			Trend:      types.TrendStable,
			ObservedAt: observedAt,
			Source:     types.SourceTestReport,
		})
	}

	if data.OxygenSaturation != nil {
		oxygen := *data.OxygenSaturation
		status := types.StatusNormal
		if oxygen < 90 {
			status = types.StatusDanger
		} else if oxygen < 95 {
			status = types.StatusWarning
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricOxygen,
			Value:      float64(oxygen),
			Unit:       unitPercent,
			Status:     status,
			Trend:      types.TrendStable,
			ObservedAt: observedAt,
			Source:     types.SourceTestReport,
		})
	}

	if data.Creatinine != nil {
		creatinine := *data.Creatinine
		status := types.StatusNormal
		if creatinine > 2.0 {
			status = types.StatusDanger
		} else if creatinine > 1.3 {
			status = types.StatusWarning
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricCreatinine,
			Value:      creatinine,
			Unit:       unitMgDl,
			Status:     status,
			Trend:      types.TrendStable,
			ObservedAt: observedAt,
			Source:     types.SourceTestReport,
		})
	}

	if data.Hemoglobin != nil {
		hemoglobin := *data.Hemoglobin
		status := types.StatusNormal
		if hemoglobin < 10 {
			status = types.StatusDanger
		} else if hemoglobin < 12 {
			status = types.StatusWarning
		}

		metrics = append(metrics, types.HealthMetric{
			Name:       MetricHemoglobin,
			Value:      hemoglobin,
			Unit:       unitGramsPerDl,
			Status:     status,
			Trend:      types.TrendStable,
			ObservedAt: observedAt,
			Source:     types.SourceTestReport,
		})
	}

	return metrics
}

// HasDiabetesMarker reports whether the chronic diseases text mentions
// diabetes, in Arabic or English.
func HasDiabetesMarker(chronicDiseases string) bool {
	if chronicDiseases == "" {
		return false
	}
	if strings.Contains(chronicDiseases, "سكري") {
		return true
	}
	return strings.Contains(strings.ToLower(chronicDiseases), "diabet")
}
