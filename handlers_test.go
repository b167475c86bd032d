package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plantdx/pkg/classifier"
	"plantdx/pkg/diagnose"
	"plantdx/pkg/report"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

// helper to perform requests
func performRequest(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type stubClassifier struct {
	res classifier.Result
	err error
}

func (s stubClassifier) Classify(context.Context, image.Image) (classifier.Result, error) {
	return s.res, s.err
}

var testSecret = []byte("test-secret")

func setupTestServer(t *testing.T, clf classifier.Classifier, renderer *report.Renderer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a := &app{
		svc:       diagnose.New(clf, nil),
		renderer:  renderer,
		secret:    testSecret,
		tokenTTL:  time.Minute,
		maxUpload: 1 << 20,
	}
	r := gin.New()
	setupRoutes(r, a)
	return r
}

func healthyTomato() stubClassifier {
	return stubClassifier{res: classifier.Result{Index: 14, Label: "Tomato_healthy", Confidence: 93.257}}
}

func pngBytes(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(150, 150, c), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write(content)
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

type predictResponse struct {
	Diagnosis     diagnose.Diagnosis `json:"diagnosis"`
	ConfidenceBar int                `json:"confidence_bar"`
	ReportURL     string             `json:"report_url"`
}

func TestPredictAndDownloadReport(t *testing.T) {
	r := setupTestServer(t, healthyTomato(), report.New(""))

	body, ct := multipartBody(t, "file", "leaf.png", pngBytes(t, color.NRGBA{255, 255, 255, 255}))
	resp := performRequest(r, http.MethodPost, "/predict", body, ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("predict status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out predictResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	d := out.Diagnosis
	if d.Plant != "Tomato" || d.Disease != "Healthy" {
		t.Fatalf("names = %q / %q", d.Plant, d.Disease)
	}
	if len(d.Treatments) != 1 || !strings.HasPrefix(d.Treatments[0], "No treatment needed") {
		t.Fatalf("treatments = %q", d.Treatments)
	}
	if d.Scores.WaterStress != 100 || d.Scores.Severity != 0 {
		t.Fatalf("scores = %+v", d.Scores)
	}
	if out.ConfidenceBar != 93 {
		t.Fatalf("confidence bar = %d", out.ConfidenceBar)
	}
	if !strings.HasPrefix(out.ReportURL, "/report.pdf?token=") {
		t.Fatalf("report url = %q", out.ReportURL)
	}

	resp = performRequest(r, http.MethodGet, out.ReportURL, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); got != report.ContentType {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, `filename="report.pdf"`) {
		t.Fatalf("content disposition = %q", got)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}
}

func TestPredictRejectsBadUploads(t *testing.T) {
	r := setupTestServer(t, healthyTomato(), report.New(""))

	resp := performRequest(r, http.MethodPost, "/predict", nil, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing file: status=%d", resp.Code)
	}

	body, ct := multipartBody(t, "file", "leaf.gif", pngBytes(t, color.NRGBA{A: 255}))
	resp = performRequest(r, http.MethodPost, "/predict", body, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("gif: status=%d", resp.Code)
	}

	body, ct = multipartBody(t, "file", "leaf.jpg", []byte("not an image"))
	resp = performRequest(r, http.MethodPost, "/predict", body, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("garbage: status=%d", resp.Code)
	}

	big := make([]byte, 2<<20)
	body, ct = multipartBody(t, "file", "leaf.png", big)
	resp = performRequest(r, http.MethodPost, "/predict", body, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("oversized: status=%d", resp.Code)
	}
}

func TestPredictClassifierFailure(t *testing.T) {
	r := setupTestServer(t, stubClassifier{err: errors.New("model offline")}, report.New(""))
	body, ct := multipartBody(t, "file", "leaf.PNG", pngBytes(t, color.NRGBA{0, 120, 0, 255}))
	resp := performRequest(r, http.MethodPost, "/predict", body, ct)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestReportEndpoint(t *testing.T) {
	r := setupTestServer(t, healthyTomato(), report.New(""))
	payload, _ := json.Marshal(map[string]any{"plant": "Potato", "disease": "Late blight", "confidence": 71.5})
	resp := performRequest(r, http.MethodPost, "/report", bytes.NewBuffer(payload), "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}

	payload, _ = json.Marshal(map[string]any{"plant": "Potato", "confidence": 150})
	resp = performRequest(r, http.MethodPost, "/report", bytes.NewBuffer(payload), "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("invalid body: status=%d", resp.Code)
	}
}

func TestReportBackendUnavailable(t *testing.T) {
	r := setupTestServer(t, healthyTomato(), report.New(filepath.Join(t.TempDir(), "missing.ttf")))
	payload, _ := json.Marshal(map[string]any{"plant": "Tomato", "disease": "Healthy", "confidence": 99})
	resp := performRequest(r, http.MethodPost, "/report", bytes.NewBuffer(payload), "application/json")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", resp.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	if out["error"] != reportFailedMessage || out["kind"] != "backend_unavailable" {
		t.Fatalf("body = %+v", out)
	}
}

func TestReportTokenRejected(t *testing.T) {
	r := setupTestServer(t, healthyTomato(), report.New(""))
	resp := performRequest(r, http.MethodGet, "/report.pdf?token=garbage", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", resp.Code)
	}
	other, _ := signReportToken([]byte("other-secret"), time.Minute, "Tomato", "Healthy", 90)
	resp = performRequest(r, http.MethodGet, "/report.pdf?token="+other, nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("foreign secret: status=%d", resp.Code)
	}
}

func TestReportTokenRoundTrip(t *testing.T) {
	tok, err := signReportToken(testSecret, time.Minute, "Pepper bell", "Bacterial spot", 64.2)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := parseReportToken(testSecret, tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Plant != "Pepper bell" || claims.Disease != "Bacterial spot" || claims.Confidence != 64.2 {
		t.Fatalf("claims = %+v", claims)
	}
	expired, _ := signReportToken(testSecret, -time.Minute, "Tomato", "Healthy", 90)
	if _, err := parseReportToken(testSecret, expired); !errors.Is(err, errBadReportToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestIndexPage(t *testing.T) {
	r := setupTestServer(t, healthyTomato(), report.New(""))
	resp := performRequest(r, http.MethodGet, "/", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d", resp.Code)
	}
	page := resp.Body.String()
	if !strings.Contains(page, "Smart Plant Disease Detection System") || !strings.Contains(page, `accept=".jpg,.jpeg,.png"`) {
		t.Fatalf("unexpected page: %.200s", page)
	}
	if resp := performRequest(r, http.MethodGet, "/diagnoses", nil, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("history route should be absent without a store, got %d", resp.Code)
	}
}

func TestLoadBackground(t *testing.T) {
	if bg, err := loadBackground(""); err != nil || bg != "" {
		t.Fatalf("empty path: %q %v", bg, err)
	}
	path := filepath.Join(t.TempDir(), "bg.png")
	if err := os.WriteFile(path, pngBytes(t, color.NRGBA{0, 80, 0, 255}), 0o644); err != nil {
		t.Fatal(err)
	}
	bg, err := loadBackground(path)
	if err != nil || !strings.HasPrefix(string(bg), "data:image/png;base64,") {
		t.Fatalf("bg = %.40q err = %v", bg, err)
	}
	if _, err := loadBackground(filepath.Join(t.TempDir(), "none.jpg")); err == nil {
		t.Fatal("expected error for missing background")
	}
}
