package extraction

import (
	"regexp"
	"strconv"
)

// BloodPressure is a systolic/diastolic pair in mmHg.
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// ExtractedData holds the fields recovered from one free-text analysis
// report. Any field may be nil: extraction is best-effort and a missing
// or unparseable value is simply absent, never an error.
type ExtractedData struct {
	BloodPressure    *BloodPressure `json:"blood_pressure,omitempty"`
	HeartRate        *int           `json:"heart_rate,omitempty"`
	BloodSugar       *int           `json:"blood_sugar,omitempty"`
	CholesterolTotal *int           `json:"cholesterol_total,omitempty"`
	Weight           *float64       `json:"weight,omitempty"` // kg
	Height           *float64       `json:"height,omitempty"` // meters
	BMI              *float64       `json:"bmi,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"` // celsius
	OxygenSaturation *int           `json:"oxygen_saturation,omitempty"`
	Creatinine       *float64       `json:"creatinine,omitempty"`
	Hemoglobin       *float64       `json:"hemoglobin,omitempty"`
}

// Field labels are matched bilingually: the analysis text comes back from
// the model in Arabic, English, or a mix of both.
var (
	bloodPressureRe = regexp.MustCompile(`(?i)(?:ضغط الدم|blood pressure|BP)[:\s]*(\d+)\s*/\s*(\d+)`)
	heartRateRe     = regexp.MustCompile(`(?i)(?:معدل ضربات القلب|heart rate|HR)[:\s]*(\d+)`)
	bloodSugarRe    = regexp.MustCompile(`(?i)(?:سكر الدم|مستوى السكر|glucose|sugar)[:\s]*(\d+)`)
	cholesterolRe   = regexp.MustCompile(`(?i)(?:كوليسترول|cholesterol)[:\s]*(\d+)`)
	weightRe        = regexp.MustCompile(`(?i)(?:وزن|weight)[:\s]*(\d+(?:\.\d+)?)`)
	heightRe        = regexp.MustCompile(`(?i)(?:طول|height)[:\s]*(\d+(?:\.\d+)?)`)
	temperatureRe   = regexp.MustCompile(`(?i)(?:درجة الحرارة|temperature|temp)[:\s]*(\d+(?:\.\d+)?)`)
	oxygenRe        = regexp.MustCompile(`(?i)(?:نسبة الأكسجين|oxygen saturation|SpO2)[:\s]*(\d+)`)
	creatinineRe    = regexp.MustCompile(`(?i)(?:كرياتينين|creatinine)[:\s]*(\d+(?:\.\d+)?)`)
	hemoglobinRe    = regexp.MustCompile(`(?i)(?:هيموغلوبين|hemoglobin|Hb)[:\s]*(\d+(?:\.\d+)?)`)
)

// Extract scans a free-text analysis report for known medical fields.
// It never fails; reports with no recognizable labels yield an empty
// result. Extracted values are not validated for physiological
// plausibility: the upstream model output is trusted as-is.
func Extract(reportText string) ExtractedData {
	var data ExtractedData

	if m := bloodPressureRe.FindStringSubmatch(reportText); m != nil {
		systolic, errS := strconv.Atoi(m[1])
		diastolic, errD := strconv.Atoi(m[2])
		if errS == nil && errD == nil {
			data.BloodPressure = &BloodPressure{Systolic: systolic, Diastolic: diastolic}
		}
	}

	data.HeartRate = matchInt(heartRateRe, reportText)
	data.BloodSugar = matchInt(bloodSugarRe, reportText)
	data.CholesterolTotal = matchInt(cholesterolRe, reportText)
	data.Temperature = matchFloat(temperatureRe, reportText)
	data.OxygenSaturation = matchInt(oxygenRe, reportText)
	data.Creatinine = matchFloat(creatinineRe, reportText)
	data.Hemoglobin = matchFloat(hemoglobinRe, reportText)

	// BMI needs both weight and height; height labels carry centimeters.
	weight := matchFloat(weightRe, reportText)
	height := matchFloat(heightRe, reportText)
	if weight != nil && height != nil && *height > 0 {
		meters := *height / 100
		bmi := *weight / (meters * meters)
		data.Weight = weight
		data.Height = &meters
		data.BMI = &bmi
	}

	return data
}

func matchInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}

func matchFloat(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
