package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/inference"
	"farmfi-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type predictionFixture struct {
	fields    *fakeFieldStore
	crops     *fakeCropStore
	images    *fakeImageStore
	objects   *fakeObjects
	predictor *fakePredictor
	svc       *PredictionService
}

func newPredictionFixture() *predictionFixture {
	fields := newFakeFieldStore()
	fx := &predictionFixture{
		fields:    fields,
		crops:     newFakeCropStore(fields),
		images:    &fakeImageStore{fields: fields},
		objects:   newFakeObjects(),
		predictor: &fakePredictor{result: &inference.Result{Disease: "Tomato___Late_blight", Confidence: 0.91}},
	}
	fx.svc = NewPredictionService(fx.fields, fx.crops, fx.images, fx.objects, fx.predictor, 1024, zap.NewNop())
	fx.svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return fx
}

func upload(fieldID int) *models.PredictionUpload {
	return &models.PredictionUpload{FieldID: fieldID, Plant: "Tomato", Filename: "../leaf photo.png", Data: pngHeader}
}

func TestPredictionService_Success(t *testing.T) {
	fx := newPredictionFixture()
	ctx := context.Background()
	field := fx.fields.add(testFarmer.ID, 2)

	d, err := fx.svc.UploadAndPredict(ctx, testFarmer, upload(field.ID))
	require.NoError(t, err)

	const key = "images/1700000000123_leaf_photo.png"
	assert.Contains(t, fx.objects.objects, key)
	assert.Equal(t, SeverityHigh, d.Severity)
	assert.Equal(t, "Tomato___Late_blight", d.DiseaseName)
	assert.Contains(t, d.Recommendations, "copper-based")
	assert.Equal(t, "https://bucket.example.com/"+key+"?X-Amz-Expires=86400", d.ViewURL)
	assert.Equal(t, "Tomato", fx.predictor.last.Plant)
	assert.Equal(t, pngHeader, fx.predictor.last.Image)

	require.Len(t, fx.images.images, 1)
	assert.Equal(t, "image/png", fx.images.images[0].ImageType)
	assert.Equal(t, key, fx.images.images[0].ImageURL)
	assert.Empty(t, fx.objects.deleted)

	history, err := fx.svc.History(ctx, testFarmer)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ViewURL)

	history, err = fx.svc.History(ctx, otherFarmer)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPredictionService_InferenceFailureLeavesNothingBehind(t *testing.T) {
	fx := newPredictionFixture()
	fx.predictor.err = errors.New("lambda timeout")
	field := fx.fields.add(testFarmer.ID, 2)

	_, err := fx.svc.UploadAndPredict(context.Background(), testFarmer, upload(field.ID))
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	assert.Empty(t, fx.images.images)
	assert.Empty(t, fx.images.detections)
	assert.Empty(t, fx.objects.objects)
	assert.Equal(t, []string{"images/1700000000123_leaf_photo.png"}, fx.objects.deleted)
	assert.Equal(t, 1, fx.predictor.calls)
}

func TestPredictionService_StorageFailureSkipsInference(t *testing.T) {
	fx := newPredictionFixture()
	fx.objects.putErr = errors.New("access denied")
	field := fx.fields.add(testFarmer.ID, 2)

	_, err := fx.svc.UploadAndPredict(context.Background(), testFarmer, upload(field.ID))
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, 0, fx.predictor.calls)
}

func TestPredictionService_PersistFailureRemovesObject(t *testing.T) {
	fx := newPredictionFixture()
	fx.images.err = errors.New("connection reset")
	field := fx.fields.add(testFarmer.ID, 2)

	_, err := fx.svc.UploadAndPredict(context.Background(), testFarmer, upload(field.ID))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Len(t, fx.objects.deleted, 1)
}

func TestPredictionService_Rejections(t *testing.T) {
	fx := newPredictionFixture()
	ctx := context.Background()
	mine := fx.fields.add(testFarmer.ID, 2)
	other := fx.fields.add(otherFarmer.ID, 2)

	_, err := fx.svc.UploadAndPredict(ctx, testEmployee, upload(mine.ID))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = fx.svc.UploadAndPredict(ctx, testFarmer, upload(other.ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	big := upload(mine.ID)
	big.Data = append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
	_, err = fx.svc.UploadAndPredict(ctx, testFarmer, big)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	text := upload(mine.ID)
	text.Data = []byte("just some text")
	_, err = fx.svc.UploadAndPredict(ctx, testFarmer, text)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	foreignCrop := &models.CropData{FieldID: other.ID, CropID: 3, CropYear: 2024, Season: "Kharif", Area: 1}
	require.NoError(t, fx.crops.CreateChecked(ctx, foreignCrop, func(*models.Field, []*models.CropData) error { return nil }))
	wrong := upload(mine.ID)
	wrong.CropDataID = &foreignCrop.ID
	_, err = fx.svc.UploadAndPredict(ctx, testFarmer, wrong)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Equal(t, 0, fx.predictor.calls)
	assert.Empty(t, fx.objects.objects)
}

func TestPredictionService_PlantFromCropRecord(t *testing.T) {
	fx := newPredictionFixture()
	ctx := context.Background()
	field := fx.fields.add(testFarmer.ID, 2)
	c := &models.CropData{FieldID: field.ID, CropID: 3, CropYear: 2024, Season: "Rabi", Area: 1}
	require.NoError(t, fx.crops.CreateChecked(ctx, c, func(*models.Field, []*models.CropData) error { return nil }))

	up := upload(field.ID)
	up.Plant = ""
	up.CropDataID = &c.ID
	d, err := fx.svc.UploadAndPredict(ctx, testFarmer, up)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", d.Plant)
	assert.Equal(t, &c.ID, d.CropDataID)
}

func TestPredictionService_NotConfigured(t *testing.T) {
	fields := newFakeFieldStore()
	svc := NewPredictionService(fields, newFakeCropStore(fields), &fakeImageStore{fields: fields}, nil, nil, 0, zap.NewNop())
	field := fields.add(testFarmer.ID, 2)

	_, err := svc.UploadAndPredict(context.Background(), testFarmer, upload(field.ID))
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func TestPredictionService_ImageURL(t *testing.T) {
	fx := newPredictionFixture()
	ctx := context.Background()
	field := fx.fields.add(testFarmer.ID, 2)
	_, err := fx.svc.UploadAndPredict(ctx, testFarmer, upload(field.ID))
	require.NoError(t, err)

	url, err := fx.svc.ImageURL(ctx, testFarmer, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://bucket.example.com/images/"))

	_, err = fx.svc.ImageURL(ctx, otherFarmer, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = fx.svc.ImageURL(ctx, testAdmin, 1)
	assert.NoError(t, err)

	_, err = fx.svc.ImageURL(ctx, testFarmer, 42)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"leaf.jpg":              "leaf.jpg",
		"my leaf (1).JPG":       "my_leaf_1_.JPG",
		"../../etc/passwd":      "passwd",
		`C:\Users\ravi\a b.png`: "a_b.png",
		"...":                   "image",
		"":                      "image",
		"పత్తి.png":             "png",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
	assert.Len(t, SanitizeFilename(strings.Repeat("a", 300)+".png"), 100)
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, SeverityNone, Severity("Tomato___healthy", 0.99))
	assert.Equal(t, SeverityHigh, Severity("Leaf rust", 0.8))
	assert.Equal(t, SeverityMedium, Severity("Leaf rust", 0.5))
	assert.Equal(t, SeverityLow, Severity("Leaf rust", 0.49))
}

func TestRecommendations(t *testing.T) {
	assert.Contains(t, Recommendations("Potato Early Blight"), "chlorothalonil")
	assert.Contains(t, Recommendations("Corn_(maize)___Common_rust_"), "sulphur")
	assert.Contains(t, Recommendations("Tomato Yellow Leaf Curl Virus"), "Viral disease")
	assert.Contains(t, Recommendations("healthy"), "healthy")
	assert.Contains(t, Recommendations("Something unseen"), "extension officer")
}
