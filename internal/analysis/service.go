package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// maxUploadBytes caps an uploaded test file at 10MB.
const maxUploadBytes = 10 * 1024 * 1024

// analysisPrompt is the instruction sent with every uploaded test file.
// The model is asked to answer in Arabic for the patient-facing UI.
const analysisPrompt = `أنت طبيب خبير متخصص في تحليل النتائج الطبية. مهمتك هي تحليل صور الفحوصات الطبية وتقديم شرح طبي مفصل باللغة العربية.

يجب أن يتضمن تحليلك:
1. تحديد نوع الفحص الطبي
2. قراءة وشرح جميع القيم والنتائج الظاهرة
3. تفسير ما إذا كانت النتائج طبيعية أم لا
4. شرح أي قيم غير طبيعية وأسبابها المحتملة
5. تقديم نصائح طبية مناسبة
6. اقتراح التخصص الطبي المناسب للمراجعة إذا لزم الأمر

اكتب بأسلوب واضح وبسيط يفهمه المريض العادي، وكن متوازناً في عرض النتائج الجيدة والسيئة.`

// allowedMimeTypes are the upload formats the model endpoint accepts.
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// TestWriter persists and removes medical test records.
type TestWriter interface {
	Create(ctx context.Context, test *types.MedicalTest) error
	Delete(ctx context.Context, userID, testID string) error
}

// AnalysisRecorder counts model calls by outcome and duration.
type AnalysisRecorder interface {
	RecordAnalysis(status string, duration time.Duration)
}

// Service runs uploaded test files through the model and stores the
// resulting analysis text as an immutable medical test record.
type Service struct {
	model   ModelClient
	tests   TestWriter
	metrics AnalysisRecorder
	logger  *logger.Logger
}

// NewService creates a new analysis service
func NewService(model ModelClient, tests TestWriter, metrics AnalysisRecorder, log *logger.Logger) *Service {
	return &Service{
		model:   model,
		tests:   tests,
		metrics: metrics,
		logger:  log,
	}
}

func (s *Service) recordAnalysis(status string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordAnalysis(status, duration)
	}
}

// UploadRequest is one test file submitted for analysis.
type UploadRequest struct {
	MimeType string
	Data     []byte
	ImageURL string
}

// AnalyzeUpload validates the file, obtains the model's analysis and
// persists the result. The stored record is never updated afterwards.
func (s *Service) AnalyzeUpload(ctx context.Context, userID string, req UploadRequest) (*types.MedicalTest, error) {
	if err := validateUpload(req); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.model.AnalyzeFile(ctx, req.MimeType, req.Data, analysisPrompt)
	if err != nil {
		s.recordAnalysis("error", time.Since(start))
		s.logger.WithUserID(userID).WithError(err).Error("Model analysis failed")
		return nil, types.NewExternalError(types.ErrCodeExternalError, "فشل في تحليل الملف. يرجى المحاولة مرة أخرى.", err)
	}
	s.recordAnalysis("success", time.Since(start))

	test := &types.MedicalTest{
		ID:             uuid.New().String(),
		UserID:         userID,
		TestType:       testTypeFor(req.MimeType),
		ImageURL:       req.ImageURL,
		AnalysisResult: result,
		CreatedAt:      time.Now(),
	}

	if err := s.tests.Create(ctx, test); err != nil {
		s.logger.WithUserID(userID).WithError(err).Error("Failed to store medical test")
		return nil, fmt.Errorf("failed to store medical test: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"test_id":   test.ID,
		"test_type": test.TestType,
	}).Info("Medical test analyzed and stored")

	return test, nil
}

// DeleteTest removes one of the user's stored tests.
func (s *Service) DeleteTest(ctx context.Context, userID, testID string) error {
	if err := s.tests.Delete(ctx, userID, testID); err != nil {
		s.logger.WithUserID(userID).WithError(err).Error("Failed to delete medical test")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"test_id": testID,
	}).Info("Medical test deleted")
	return nil
}

func validateUpload(req UploadRequest) error {
	if len(req.Data) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "الملف فارغ", nil)
	}
	if len(req.Data) > maxUploadBytes {
		return types.NewValidationError(types.ErrCodeInvalidInput, "حجم الملف كبير جداً. الحد الأقصى 10 ميجابايت.", nil)
	}
	if !allowedMimeTypes[strings.ToLower(req.MimeType)] {
		return types.NewValidationError(types.ErrCodeInvalidInput, "نوع الملف غير مدعوم. يرجى اختيار صورة بصيغة JPG, PNG, WebP أو ملف PDF.", nil)
	}
	return nil
}

func testTypeFor(mimeType string) string {
	if strings.EqualFold(mimeType, "application/pdf") {
		return "document"
	}
	return "image"
}
