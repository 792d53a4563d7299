package types

import "time"

// MetricStatus classifies a health metric reading
type MetricStatus string

const (
	StatusNormal  MetricStatus = "normal"
	StatusWarning MetricStatus = "warning"
	StatusDanger  MetricStatus = "danger"
)

// MetricTrend describes the direction of a metric
type MetricTrend string

const (
	TrendUp     MetricTrend = "up"
	TrendDown   MetricTrend = "down"
	TrendStable MetricTrend = "stable"
)

// MetricSource tags where a metric value came from
type MetricSource string

const (
	SourceManual     MetricSource = "manual"
	SourceTestReport MetricSource = "test_analysis"
	SourceCalculated MetricSource = "calculated"
)

// AlertCategory groups alerts by subject
type AlertCategory string

const (
	AlertCategoryMedication  AlertCategory = "medication"
	AlertCategoryAppointment AlertCategory = "appointment"
	AlertCategoryTest        AlertCategory = "test"
	AlertCategoryGeneral     AlertCategory = "general"
)

// AlertPriority orders alerts for display
type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
)

// PatientProfile is the self-reported patient record. It is read-only
// during an analysis run; mutation happens only through profile edits.
type PatientProfile struct {
	ID                 string    `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	FullName           string    `json:"full_name" db:"full_name"`
	Age                int       `json:"age" db:"age"`
	Gender             string    `json:"gender" db:"gender"`
	IsSmoker           bool      `json:"is_smoker" db:"is_smoker"`
	ChronicDiseases    string    `json:"chronic_diseases" db:"chronic_diseases"`
	CurrentMedications string    `json:"current_medications" db:"current_medications"`
	PreviousConditions string    `json:"previous_medical_conditions" db:"previous_medical_conditions"`
	HasDrugAllergies   bool      `json:"has_drug_allergies" db:"has_drug_allergies"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// MedicalTest is one uploaded test with its AI analysis text.
// Records are immutable after creation; only retention cleanup or an
// explicit user delete removes them.
type MedicalTest struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	TestType       string    `json:"test_type" db:"test_type"` // image | document
	ImageURL       string    `json:"image_url" db:"image_url"`
	AnalysisResult string    `json:"analysis_result" db:"analysis_result"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// HealthMetric is a derived, status-annotated reading. It is recomputed
// per view and never stored durably.
type HealthMetric struct {
	Name       string       `json:"name"`
	Value      float64      `json:"value"`
	Unit       string       `json:"unit"`
	Status     MetricStatus `json:"status"`
	Trend      MetricTrend  `json:"trend"`
	ObservedAt time.Time    `json:"date"`
	Source     MetricSource `json:"source"`
}

// HealthAlert is a transient notification regenerated on every pipeline
// run; acknowledgement lives in UI state, not here.
type HealthAlert struct {
	ID           string        `json:"id"`
	Category     AlertCategory `json:"type"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	Priority     AlertPriority `json:"priority"`
	ObservedAt   time.Time     `json:"date"`
	Acknowledged bool          `json:"is_read"`
}

// DashboardData is the full derived payload returned to the UI layer.
type DashboardData struct {
	HealthMetrics []HealthMetric `json:"health_metrics"`
	HealthScore   int            `json:"health_score"`
	Alerts        []HealthAlert  `json:"alerts"`
}

// HealthReport is the generated textual health summary.
type HealthReport struct {
	Summary         string      `json:"summary"`
	Recommendations []string    `json:"recommendations"`
	RiskFactors     []string    `json:"risk_factors"`
	LifestyleTips   []string    `json:"lifestyle_tips"`
	NextSteps       []string    `json:"next_steps"`
	GeneratedAt     time.Time   `json:"generated_at"`
	PatientInfo     PatientInfo `json:"patient_info"`
}

// PatientInfo is the report header block.
type PatientInfo struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// ResetCode is one password-reset verification code.
type ResetCode struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Code      string    `json:"code" db:"code"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
