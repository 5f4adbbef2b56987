package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endpoint = "https://inference.example.com/predict"

func setupHTTPMock(t *testing.T) *Client {
	t.Helper()
	c := NewClient(endpoint, "detect", 2*time.Second)
	httpmock.ActivateNonDefault(c.http)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestPredict_SendsBase64AndParsesPrediction(t *testing.T) {
	c := setupHTTPMock(t)
	image := []byte{0xff, 0xd8, 0xff, 0xe0}

	httpmock.RegisterResponder(http.MethodPost, endpoint,
		func(req *http.Request) (*http.Response, error) {
			var body map[string]string
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return nil, err
			}
			assert.Equal(t, base64.StdEncoding.EncodeToString(image), body["image"])
			assert.Equal(t, "tomato", body["plant"])
			assert.Equal(t, "detect", body["mode"])
			return httpmock.NewStringResponse(http.StatusOK,
				`{"prediction":"Tomato___Late_blight","confidence":0.91}`), nil
		})

	res, err := c.Predict(context.Background(), Request{Image: image, Plant: "tomato"})
	require.NoError(t, err)
	assert.Equal(t, "Tomato___Late_blight", res.Disease)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestPredict_AlternateFieldsAndPercentConfidence(t *testing.T) {
	c := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, endpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"predicted_disease":"healthy","confidence":"87.5%"}`))

	res, err := c.Predict(context.Background(), Request{ImageURL: "https://bucket/leaf.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "healthy", res.Disease)
	assert.InDelta(t, 0.875, res.Confidence, 1e-9)
}

func TestPredict_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"model crashed"}`},
		{"bad json", http.StatusOK, `not json`},
		{"missing prediction", http.StatusOK, `{"confidence":0.5}`},
		{"missing confidence", http.StatusOK, `{"prediction":"rust"}`},
		{"error field", http.StatusOK, `{"error":"unsupported plant"}`},
		{"out of range", http.StatusOK, `{"prediction":"rust","confidence":150}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupHTTPMock(t)
			httpmock.RegisterResponder(http.MethodPost, endpoint,
				httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.Predict(context.Background(), Request{Image: []byte("x")})
			assert.Error(t, err)
			// never retried
			assert.Equal(t, 1, httpmock.GetTotalCallCount())
		})
	}
}

func TestPredict_TransportError(t *testing.T) {
	c := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, endpoint,
		httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := c.Predict(context.Background(), Request{Image: []byte("x")})
	assert.ErrorContains(t, err, "connection reset")
}

func TestPredict_NotConfigured(t *testing.T) {
	c := NewClient("", "detect", time.Second)
	_, err := c.Predict(context.Background(), Request{Image: []byte("x")})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPredict_RequiresImage(t *testing.T) {
	c := setupHTTPMock(t)
	_, err := c.Predict(context.Background(), Request{Plant: "rice"})
	assert.Error(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}
