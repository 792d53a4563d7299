package insights

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sahti/patient-portal/pkg/types"
)

// checkupIntervalDays is the maximum age of the newest test before a
// periodic checkup reminder is raised.
const checkupIntervalDays = 90

// Alert IDs are rule-specific, so each rule contributes at most one
// alert per trigger and no cross-rule deduplication is needed.
const (
	alertIDMedication = "medication-reminder"
	alertIDCheckup    = "periodic-test"
	alertIDChronic    = "chronic-disease-monitoring"
)

// AlertOptions carries the evaluation time and caller-supplied dismissal
// state. Dismissal is session state owned by the caller; passing it in
// keeps alert generation pure and repeatable.
type AlertOptions struct {
	Now            time.Time
	DismissedUntil map[string]time.Time
}

// GenerateAlerts evaluates the alert rules over the profile, the
// classified metrics and the test history. Rules are independent and
// the result is fully regenerated on every call.
func GenerateAlerts(profile *types.PatientProfile, metrics []types.HealthMetric, tests []*types.MedicalTest, opts AlertOptions) []types.HealthAlert {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var alerts []types.HealthAlert

	add := func(alert types.HealthAlert) {
		if until, ok := opts.DismissedUntil[alert.ID]; ok && now.Before(until) {
			return
		}
		alerts = append(alerts, alert)
	}

	for _, metric := range metrics {
		if metric.Status != types.StatusDanger {
			continue
		}
		value := strconv.FormatFloat(metric.Value, 'f', -1, 64)
		add(types.HealthAlert{
			ID:         "danger-" + metric.Name,
			Category:   types.AlertCategoryTest,
			Title:      fmt.Sprintf("مؤشر صحي خطير: %s", metric.Name),
			Message:    fmt.Sprintf("قيمة %s (%s %s) تتطلب مراجعة طبية عاجلة", metric.Name, value, metric.Unit),
			Priority:   types.PriorityHigh,
			ObservedAt: now,
		})
	}

	if profile != nil && profile.CurrentMedications != "" {
		add(types.HealthAlert{
			ID:         alertIDMedication,
			Category:   types.AlertCategoryMedication,
			Title:      "تذكير بالأدوية",
			Message:    "تذكر تناول الأدوية الموصوفة لك في الوقت المحدد",
			Priority:   types.PriorityHigh,
			ObservedAt: now,
		})
	}

	// The history is ordered newest first; an empty history never
	// triggers the checkup reminder.
	if len(tests) > 0 {
		daysSinceLastTest := int(now.Sub(tests[0].CreatedAt).Hours() / 24)
		if daysSinceLastTest > checkupIntervalDays {
			add(types.HealthAlert{
				ID:         alertIDCheckup,
				Category:   types.AlertCategoryTest,
				Title:      "فحص دوري مطلوب",
				Message:    "مر 90 يوم على آخر فحص طبي. يُنصح بإجراء فحص دوري",
				Priority:   types.PriorityMedium,
				ObservedAt: now,
			})
		}
	}

	if profile != nil && profile.ChronicDiseases != "" {
		add(types.HealthAlert{
			ID:         alertIDChronic,
			Category:   types.AlertCategoryTest,
			Title:      "مراقبة الأمراض المزمنة",
			Message:    "تأكد من مراقبة مؤشرات الأمراض المزمنة بانتظام",
			Priority:   types.PriorityMedium,
			ObservedAt: now,
		})
	}

	return alerts
}
