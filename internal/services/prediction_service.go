package services

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/inference"
	"farmfi-backend/internal/metrics"
	"farmfi-backend/internal/models"

	"go.uber.org/zap"
)

const (
	SeverityNone   = "none"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// PredictionService stores leaf images, asks the inference endpoint for a
// diagnosis and keeps the result.
type PredictionService struct {
	fields    FieldStore
	crops     CropStore
	images    ImageStore
	objects   ObjectStore
	predictor Predictor
	maxBytes  int64
	log       *zap.Logger
	now       func() time.Time
}

func NewPredictionService(fields FieldStore, crops CropStore, images ImageStore, objects ObjectStore,
	predictor Predictor, maxBytes int64, log *zap.Logger) *PredictionService {
	return &PredictionService{
		fields:    fields,
		crops:     crops,
		images:    images,
		objects:   objects,
		predictor: predictor,
		maxBytes:  maxBytes,
		log:       log.Named("predictions"),
		now:       time.Now,
	}
}

// UploadAndPredict runs the full flow for one image. Nothing is recorded in
// the database unless the inference call succeeds; the stored object is
// removed again on failure.
func (s *PredictionService) UploadAndPredict(ctx context.Context, actor models.Identity, up *models.PredictionUpload) (*models.DiseaseDetection, error) {
	if !actor.IsFarmer() {
		return nil, apperr.Forbidden("only farmers can upload field images")
	}
	if s.objects == nil || s.predictor == nil {
		return nil, apperr.E(apperr.KindUpstream, "disease prediction is not configured")
	}

	field, err := s.fields.Get(ctx, up.FieldID)
	if err != nil {
		return nil, err
	}
	if field.FarmerID != actor.ID {
		return nil, apperr.NotFound("field not found")
	}

	plant := strings.TrimSpace(up.Plant)
	if up.CropDataID != nil {
		c, err := s.crops.Get(ctx, *up.CropDataID)
		if err != nil {
			return nil, err
		}
		if c.FieldID != field.ID {
			return nil, apperr.Validation("crop record does not belong to this field")
		}
		if plant == "" {
			plant = c.CropName
		}
	}

	if len(up.Data) == 0 {
		return nil, apperr.Validation("image file is required")
	}
	if s.maxBytes > 0 && int64(len(up.Data)) > s.maxBytes {
		return nil, apperr.Validation(fmt.Sprintf("image exceeds the %d byte limit", s.maxBytes))
	}
	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(up.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Validation("only image files are accepted")
	}

	key := ObjectKey(s.now(), up.Filename)
	if err := s.objects.Put(ctx, key, contentType, up.Data); err != nil {
		metrics.PredictionsTotal.WithLabelValues("storage_error").Inc()
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to store image", err)
	}

	start := time.Now()
	res, err := s.predictor.Predict(ctx, inference.Request{Image: up.Data, Plant: plant})
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("inference_error").Inc()
		s.log.Warn("inference failed", zap.Error(err), zap.Int("field_id", field.ID), zap.String("key", key))
		s.discard(ctx, key)
		return nil, apperr.Wrap(apperr.KindUpstream, "disease prediction failed", err)
	}

	img := &models.FieldImage{
		FieldID:    field.ID,
		CropDataID: up.CropDataID,
		ImageURL:   key,
		ImageType:  contentType,
	}
	d := &models.DiseaseDetection{
		FieldID:         field.ID,
		CropDataID:      up.CropDataID,
		Plant:           plant,
		DiseaseName:     res.Disease,
		ConfidenceScore: res.Confidence,
		Severity:        Severity(res.Disease, res.Confidence),
		Recommendations: Recommendations(res.Disease),
		ImageKey:        key,
		FieldName:       field.FieldName,
	}
	if err := s.images.CreateWithDetection(ctx, img, d); err != nil {
		metrics.PredictionsTotal.WithLabelValues("store_error").Inc()
		s.discard(ctx, key)
		return nil, err
	}

	metrics.PredictionsTotal.WithLabelValues("success").Inc()
	s.log.Info("disease detected",
		zap.Int("detection_id", d.ID),
		zap.Int("field_id", field.ID),
		zap.String("disease", d.DiseaseName),
		zap.Float64("confidence", d.ConfidenceScore))

	d.ViewURL = s.presign(ctx, key)
	return d, nil
}

// History lists the farmer's detections with fresh view URLs.
func (s *PredictionService) History(ctx context.Context, actor models.Identity) ([]*models.DiseaseDetection, error) {
	if !actor.IsFarmer() {
		return nil, apperr.Forbidden("prediction history is available to farmers")
	}
	list, err := s.images.ListByFarmer(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range list {
		d.ViewURL = s.presign(ctx, d.ImageKey)
	}
	return list, nil
}

// ImageURL returns a presigned URL for an image the caller may see.
func (s *PredictionService) ImageURL(ctx context.Context, actor models.Identity, imageID int) (string, error) {
	img, farmerID, err := s.images.GetImage(ctx, imageID)
	if err != nil {
		return "", err
	}
	if actor.IsFarmer() && farmerID != actor.ID {
		return "", apperr.NotFound("image not found")
	}
	if s.objects == nil {
		return "", apperr.E(apperr.KindUpstream, "object storage is not configured")
	}
	url, err := s.objects.PresignGet(ctx, img.ImageURL)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "failed to sign image url", err)
	}
	return url, nil
}

func (s *PredictionService) presign(ctx context.Context, key string) string {
	if s.objects == nil || key == "" {
		return ""
	}
	url, err := s.objects.PresignGet(ctx, key)
	if err != nil {
		s.log.Warn("presign failed", zap.Error(err), zap.String("key", key))
		return ""
	}
	return url
}

// discard deletes an orphaned object; failure is only logged.
func (s *PredictionService) discard(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.objects.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete orphaned image", zap.Error(err), zap.String("key", key))
	}
}

// ObjectKey builds images/<unix-millis>_<sanitized filename>.
func ObjectKey(t time.Time, filename string) string {
	return fmt.Sprintf("images/%d_%s", t.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename keeps the base name and replaces anything outside
// [a-zA-Z0-9._-] with an underscore.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "image"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

func isHealthy(disease string) bool {
	return strings.Contains(strings.ToLower(disease), "healthy")
}

// Severity grades a diagnosis by model confidence.
func Severity(disease string, confidence float64) string {
	switch {
	case isHealthy(disease):
		return SeverityNone
	case confidence >= 0.8:
		return SeverityHigh
	case confidence >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// checked in order, first match wins
var recommendationTable = []struct {
	keyword string
	advice  string
}{
	{"late_blight", "Remove and destroy infected leaves. Apply a copper-based or mancozeb fungicide and avoid overhead irrigation."},
	{"early_blight", "Prune lower leaves, mulch the soil and apply chlorothalonil or mancozeb at 7-10 day intervals."},
	{"blight", "Remove infected foliage, improve air circulation and apply a recommended fungicide."},
	{"rust", "Remove affected leaves and spray a sulphur or triazole fungicide. Avoid wetting foliage late in the day."},
	{"powdery", "Apply wettable sulphur or potassium bicarbonate and reduce nitrogen fertilizer."},
	{"mildew", "Improve ventilation, avoid leaf wetness and apply a systemic fungicide such as metalaxyl."},
	{"spot", "Remove spotted leaves, rotate crops and apply a copper oxychloride spray."},
	{"mosaic", "Viral disease: uproot infected plants, control aphids and whiteflies and use resistant varieties."},
	{"virus", "Viral disease: remove infected plants, control insect vectors and disinfect tools."},
	{"curl", "Control whiteflies with neem oil or approved insecticides and remove severely curled plants."},
	{"rot", "Improve drainage, avoid waterlogging and treat the soil with Trichoderma or a copper fungicide."},
	{"wilt", "Remove wilted plants, rotate with non-host crops and treat seed with carbendazim."},
	{"scab", "Use certified disease-free seed, keep soil pH below 5.5 and avoid fresh manure."},
	{"mite", "Spray neem oil or an approved miticide and keep plants well watered."},
}

// Recommendations returns advice for a diagnosis from a fixed table.
func Recommendations(disease string) string {
	if isHealthy(disease) {
		return "The plant looks healthy. Continue regular monitoring and balanced fertilization."
	}
	key := strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(disease))
	for _, r := range recommendationTable {
		if strings.Contains(key, r.keyword) {
			return r.advice
		}
	}
	return "Consult the local agriculture extension officer for a field inspection and treatment plan."
}
