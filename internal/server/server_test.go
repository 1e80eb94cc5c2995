package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/nutrivision/pkg/detection"
	"github.com/menta2k/nutrivision/pkg/types"
)

type fakeDetector struct {
	err       error
	available bool
	got       []byte
	requestID string
}

func (f *fakeDetector) DetectIngredients(ctx context.Context, data []byte) (*types.DetectionResponse, error) {
	f.got = data
	f.requestID, _ = detection.RequestIDFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &types.DetectionResponse{
		Success:      true,
		Detections:   []types.Detection{},
		TotalObjects: 0,
		Message:      detection.Message(0),
	}, nil
}

func (f *fakeDetector) Available(context.Context) bool {
	return f.available
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestServer(det Detector, opts Options) *Server {
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"http://localhost:5173"}
	}
	return New(det, opts, quietLogger())
}

func multipartBody(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="plato.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Expected JSON error body: %v", err)
	}
	return body.Detail
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeDetector{available: true}, Options{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["service"] != serviceName || body["ai_service_available"] != true {
		t.Errorf("Unexpected health body %v", body)
	}
}

func TestRoot(t *testing.T) {
	s := newTestServer(&fakeDetector{}, Options{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(rec.Body.String(), Version) {
		t.Errorf("Expected version in root body, got %s", rec.Body.String())
	}
}

func TestDetectUpload(t *testing.T) {
	det := &fakeDetector{}
	s := newTestServer(det, Options{})

	body, ct := multipartBody(t, "image/jpeg", []byte("jpeg bytes"))
	req := httptest.NewRequest(http.MethodPost, "/detect-objects", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(det.got) != "jpeg bytes" {
		t.Errorf("Expected upload bytes to reach detector, got %q", det.got)
	}
	if det.requestID != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("Expected request id to propagate, got %q / %q", det.requestID, rec.Header().Get(RequestIDHeader))
	}

	var resp types.DetectionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Message != detection.Message(0) {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestDetectUploadRejectsNonImage(t *testing.T) {
	det := &fakeDetector{}
	s := newTestServer(det, Options{})

	body, ct := multipartBody(t, "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/detect-objects", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "File must be an image" {
		t.Errorf("Unexpected detail %q", got)
	}
	if det.got != nil {
		t.Error("Expected detector not to be called")
	}
}

func TestDetectUploadMissingFile(t *testing.T) {
	s := newTestServer(&fakeDetector{}, Options{})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/detect-objects", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestDetectBase64(t *testing.T) {
	det := &fakeDetector{}
	s := newTestServer(det, Options{})

	payload := `{"image": "data:image/png;base64,` + base64.StdEncoding.EncodeToString([]byte("png bytes")) + `"}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect-objects-base64", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(det.got) != "png bytes" {
		t.Errorf("Expected decoded bytes, got %q", det.got)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}
}

func TestDetectBase64BadInput(t *testing.T) {
	s := newTestServer(&fakeDetector{}, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{"picture": "abc"}`},
		{"bad base64", `{"image": "!!!"}`},
		{"bad json", `{"image":`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect-objects-base64", strings.NewReader(tt.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.name, rec.Code)
		}
	}
}

func TestDetectBase64TooLarge(t *testing.T) {
	s := newTestServer(&fakeDetector{}, Options{MaxUpload: 16})
	body := `{"image": "` + strings.Repeat("A", 64) + `"}`

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect-objects-base64", strings.NewReader(body)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{detection.ErrEmptyImage, http.StatusBadRequest},
		{fmt.Errorf("%w: bad header", detection.ErrDecodeFailure), http.StatusBadRequest},
		{fmt.Errorf("%w: refused", detection.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("encode processed image: boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		s := newTestServer(&fakeDetector{err: tt.err}, Options{})
		payload := `{"image": "` + base64.StdEncoding.EncodeToString([]byte("x")) + `"}`
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect-objects-base64", strings.NewReader(payload)))

		if rec.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
		if decodeDetail(t, rec) == "" {
			t.Errorf("%v: expected a detail message", tt.err)
		}
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeDetector{}, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/detect-objects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Expected origin to be allowed, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected unknown origin to get no CORS headers")
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(&fakeDetector{}, Options{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a metrics handler, got %d", rec.Code)
	}

	s = newTestServer(&fakeDetector{}, Options{Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "up 1\n")
	})})
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "up 1\n" {
		t.Errorf("Expected metrics handler output, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestServeShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := newTestServer(&fakeDetector{available: true}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(ShutdownTimeout):
		t.Fatal("Server did not shut down")
	}
}
