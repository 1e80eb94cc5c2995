package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/nutrivision/pkg/detection"
	"github.com/menta2k/nutrivision/pkg/ollama"
)

// fakeOllama answers every chat request with reply
func fakeOllama(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/chat":
			var req api.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(api.ChatResponse{
				Model:   req.Model,
				Message: api.Message{Role: "assistant", Content: reply},
				Done:    true,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectEmptyModelAnswer(t *testing.T) {
	model := fakeOllama(t, "")
	defer model.Close()

	client, err := ollama.NewClient(model.URL)
	if err != nil {
		t.Fatal(err)
	}
	det := detection.NewDetector(client, detection.WithLogger(quietLogger()))
	s := newTestServer(det, Options{})

	payload := `{"image": "` + base64.StdEncoding.EncodeToString(encodePNG(t, 64, 48)) + `"}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect-objects-base64", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success      bool              `json:"success"`
		TotalObjects int               `json:"total_objects"`
		Detections   []json.RawMessage `json:"detections"`
		Message      string            `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Success {
		t.Error("Expected success")
	}
	if body.TotalObjects != 0 || len(body.Detections) != 0 {
		t.Errorf("Expected no detections, got %d", body.TotalObjects)
	}
	if body.Message != detection.Message(0) {
		t.Errorf("Unexpected message %q", body.Message)
	}
}

func TestDetectModelUnreachable(t *testing.T) {
	model := fakeOllama(t, "")
	model.Close()

	client, err := ollama.NewClient(model.URL)
	if err != nil {
		t.Fatal(err)
	}
	det := detection.NewDetector(client, detection.WithLogger(quietLogger()))
	s := newTestServer(det, Options{})

	payload := `{"image": "` + base64.StdEncoding.EncodeToString(encodePNG(t, 64, 48)) + `"}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect-objects-base64", strings.NewReader(payload)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}
