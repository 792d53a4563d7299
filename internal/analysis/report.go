package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/sahti/patient-portal/pkg/types"
)

// recentWindowMonths bounds what counts as a recent test in the report.
const recentWindowMonths = 3

// abnormalMarkers flag a stored analysis text as an abnormal result.
var abnormalMarkers = []string{"غير طبيعي", "مرتفع", "منخفض", "خطر"}

// profileFindings is the risk picture derived from the profile alone.
type profileFindings struct {
	AgeGroup     string
	RiskFactors  []string
	HealthStatus string
}

// historyFindings summarizes the stored test history.
type historyFindings struct {
	TotalTests      int
	RecentTests     int
	AbnormalResults int
	TestTypes       []string
}

// metricFindings buckets classified metrics by status.
type metricFindings struct {
	Normal  int
	Warning int
	Danger  int
}

// BuildReport assembles the Arabic health report from the profile, the
// classified metrics and the test history. The report is generated
// locally and deterministically; no model call is involved.
func BuildReport(profile *types.PatientProfile, metrics []types.HealthMetric, tests []*types.MedicalTest) *types.HealthReport {
	pf := analyzeProfile(profile)
	hf := analyzeHistory(tests, time.Now())
	mf := analyzeMetrics(metrics)

	report := &types.HealthReport{
		Summary:         buildSummary(profile, pf, hf, mf),
		Recommendations: buildRecommendations(profile, hf, mf),
		RiskFactors:     buildRiskFactors(profile, hf, mf),
		LifestyleTips:   buildLifestyleTips(profile),
		NextSteps:       buildNextSteps(hf, mf),
		GeneratedAt:     time.Now(),
	}

	if profile != nil {
		report.PatientInfo = types.PatientInfo{
			Name:   profile.FullName,
			Age:    profile.Age,
			Gender: profile.Gender,
		}
	}

	return report
}

func analyzeProfile(profile *types.PatientProfile) profileFindings {
	var pf profileFindings
	if profile == nil {
		pf.HealthStatus = "جيدة"
		return pf
	}

	switch age := profile.Age; {
	case age <= 0:
	case age < 18:
		pf.AgeGroup = "مراهق"
	case age < 30:
		pf.AgeGroup = "شاب"
	case age < 50:
		pf.AgeGroup = "بالغ"
	case age < 65:
		pf.AgeGroup = "متوسط العمر"
	default:
		pf.AgeGroup = "كبير السن"
	}

	if profile.IsSmoker {
		pf.RiskFactors = append(pf.RiskFactors, "التدخين")
	}
	if profile.ChronicDiseases != "" {
		pf.RiskFactors = append(pf.RiskFactors, "الأمراض المزمنة")
	}
	if profile.Age > 60 {
		pf.RiskFactors = append(pf.RiskFactors, "التقدم في العمر")
	}
	if profile.PreviousConditions != "" {
		pf.RiskFactors = append(pf.RiskFactors, "تاريخ مرضي")
	}

	switch {
	case len(pf.RiskFactors) == 0:
		pf.HealthStatus = "جيدة"
	case len(pf.RiskFactors) <= 2:
		pf.HealthStatus = "متوسطة"
	default:
		pf.HealthStatus = "تحتاج مراقبة"
	}

	return pf
}

func analyzeHistory(tests []*types.MedicalTest, now time.Time) historyFindings {
	hf := historyFindings{TotalTests: len(tests)}
	cutoff := now.AddDate(0, -recentWindowMonths, 0)
	seenTypes := make(map[string]bool)

	for _, test := range tests {
		if test.CreatedAt.After(cutoff) {
			hf.RecentTests++
		}
		if test.TestType != "" && !seenTypes[test.TestType] {
			seenTypes[test.TestType] = true
			hf.TestTypes = append(hf.TestTypes, test.TestType)
		}
		if isAbnormalResult(test.AnalysisResult) {
			hf.AbnormalResults++
		}
	}

	return hf
}

func isAbnormalResult(analysisResult string) bool {
	if analysisResult == "" {
		return false
	}
	for _, marker := range abnormalMarkers {
		if strings.Contains(analysisResult, marker) {
			return true
		}
	}
	return false
}

func analyzeMetrics(metrics []types.HealthMetric) metricFindings {
	var mf metricFindings
	for _, metric := range metrics {
		switch metric.Status {
		case types.StatusNormal:
			mf.Normal++
		case types.StatusWarning:
			mf.Warning++
		case types.StatusDanger:
			mf.Danger++
		}
	}
	return mf
}

func buildSummary(profile *types.PatientProfile, pf profileFindings, hf historyFindings, mf metricFindings) string {
	age := "غير محدد"
	gender := "غير محدد"
	if profile != nil && profile.Age > 0 {
		age = fmt.Sprintf("%d", profile.Age)
	}
	if profile != nil && profile.Gender != "" {
		gender = profile.Gender
	}

	var b strings.Builder
	fmt.Fprintf(&b, "بناءً على تحليل شامل لبيانات المريض، العمر: %s سنة، الجنس: %s، ", age, gender)

	if profile != nil && profile.ChronicDiseases != "" {
		fmt.Fprintf(&b, "والأمراض المزمنة: %s، ", profile.ChronicDiseases)
	}
	if profile != nil && profile.IsSmoker {
		b.WriteString("مع وجود عامل خطر التدخين، ")
	}

	condition := "متوسطة"
	if mf.Danger > 0 {
		condition = "تحتاج مراقبة خاصة"
	} else if mf.Normal > 0 {
		condition = "جيدة نسبياً"
	}
	fmt.Fprintf(&b, "يبدو أن الحالة الصحية %s. ", condition)
	fmt.Fprintf(&b, "تم إجراء %d فحص طبي، و%d مؤشر صحي طبيعي.", hf.TotalTests, mf.Normal)

	return b.String()
}

func buildRecommendations(profile *types.PatientProfile, hf historyFindings, mf metricFindings) []string {
	var recommendations []string

	if profile != nil && profile.IsSmoker {
		recommendations = append(recommendations, "الإقلاع عن التدخين فوراً")
	}
	if profile != nil && profile.ChronicDiseases != "" {
		recommendations = append(recommendations, "متابعة دورية مع الطبيب المختص")
	}
	if mf.Danger > 0 {
		recommendations = append(recommendations, "مراجعة طبية عاجلة للمؤشرات الخطرة")
	}
	if hf.TotalTests == 0 {
		recommendations = append(recommendations, "إجراء فحوصات طبية أساسية")
	}

	recommendations = append(recommendations,
		"اتباع نظام غذائي صحي ومتوازن",
		"ممارسة الرياضة بانتظام",
		"إجراء فحوصات دورية",
	)

	return recommendations
}

func buildRiskFactors(profile *types.PatientProfile, hf historyFindings, mf metricFindings) []string {
	var riskFactors []string

	if profile != nil && profile.IsSmoker {
		riskFactors = append(riskFactors, "التدخين")
	}
	if profile != nil && profile.ChronicDiseases != "" {
		riskFactors = append(riskFactors, "الأمراض المزمنة")
	}
	if profile != nil && profile.Age > 60 {
		riskFactors = append(riskFactors, "التقدم في العمر")
	}
	if mf.Danger > 0 {
		riskFactors = append(riskFactors, "مؤشرات صحية خطرة")
	}
	if hf.AbnormalResults > 0 {
		riskFactors = append(riskFactors, "نتائج تحاليل غير طبيعية")
	}

	return riskFactors
}

func buildLifestyleTips(profile *types.PatientProfile) []string {
	tips := []string{
		"الحفاظ على وزن صحي ومتوازن",
		"النوم 7-8 ساعات يومياً",
		"شرب 8 أكواب من الماء يومياً",
		"ممارسة الرياضة 30 دقيقة يومياً",
		"تجنب التوتر والإجهاد",
		"تناول الخضروات والفواكه بانتظام",
	}

	if profile != nil && profile.IsSmoker {
		tips = append(tips, "تجنب التدخين والتدخين السلبي")
	}
	if profile != nil && profile.Age > 50 {
		tips = append(tips, "إجراء فحوصات دورية للكشف المبكر")
	}

	return tips
}

func buildNextSteps(hf historyFindings, mf metricFindings) []string {
	var steps []string

	if mf.Danger > 0 {
		steps = append(steps, "مراجعة طبية عاجلة")
	}

	steps = append(steps,
		"حجز موعد مع الطبيب للفحص الدوري",
		"إجراء فحوصات طبية أساسية",
		"متابعة المؤشرات الصحية بانتظام",
		"تطبيق النصائح الطبية المقدمة",
	)

	if hf.TotalTests == 0 {
		steps = append(steps, "إجراء فحص شامل للجسم")
	}

	return steps
}
