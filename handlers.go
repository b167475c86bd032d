package main

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"plantdx/models"
	"plantdx/pkg/diagnose"
	"plantdx/pkg/history"
	"plantdx/pkg/report"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

// reportFailedMessage is shown for every report failure; the kind is logged
// and returned alongside for clients that care.
const reportFailedMessage = "PDF generation failed. Check the report renderer installation."

// app holds everything the handlers need. It is built once in main.
type app struct {
	svc        *diagnose.Service
	renderer   *report.Renderer
	history    *history.Store
	secret     []byte
	tokenTTL   time.Duration
	maxUpload  int64
	background template.URL
}

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

func setupRoutes(r *gin.Engine, a *app) {
	r.SetHTMLTemplate(pageTemplate)
	r.GET("/", a.indexHandler)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/predict", a.predictHandler)
	r.GET("/report.pdf", a.reportTokenHandler)
	r.POST("/report", a.reportHandler)
	if a.history.Enabled() {
		r.GET("/diagnoses", a.listDiagnosesHandler)
	}
}

func (a *app) indexHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{
		"Background": a.background,
		"Accept":     ".jpg,.jpeg,.png",
	})
}

// predictHandler classifies one uploaded leaf image.
func (a *app) predictHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExt[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type (jpg, jpeg or png)"})
		return
	}
	if file.Size > a.maxUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}
	defer f.Close()
	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not decode image"})
		return
	}

	d, err := a.svc.Diagnose(c.Request.Context(), img)
	if err != nil {
		slog.Error("diagnosis failed", "file", file.Filename, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "classification failed"})
		return
	}
	a.record(c, file.Filename, "upload", d)

	resp := gin.H{
		"diagnosis":      d,
		"confidence_bar": int(d.Confidence),
	}
	if token, err := signReportToken(a.secret, a.tokenTTL, d.Plant, d.Disease, d.Confidence); err == nil {
		resp["report_url"] = "/report.pdf?token=" + url.QueryEscape(token)
	} else {
		slog.Warn("failed to sign report token", "err", err)
	}
	c.JSON(http.StatusOK, resp)
}

// record stores the diagnosis when history is enabled. Failures are logged only.
func (a *app) record(c *gin.Context, fileName, source string, d diagnose.Diagnosis) {
	if !a.history.Enabled() {
		return
	}
	row := &models.Diagnosis{
		FileName:    fileName,
		Source:      source,
		Label:       d.Label,
		Plant:       d.Plant,
		Disease:     d.Disease,
		Confidence:  d.Confidence,
		Severity:    d.Scores.Severity,
		WaterStress: d.Scores.WaterStress,
	}
	if err := a.history.Record(c.Request.Context(), row); err != nil {
		slog.Warn("failed to record diagnosis", "file", fileName, "err", err)
	}
}

// reportTokenHandler renders the report for a signed link from /predict.
func (a *app) reportTokenHandler(c *gin.Context) {
	claims, err := parseReportToken(a.secret, c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	a.sendReport(c, a.svc.ReportInput(claims.Plant, claims.Disease, claims.Confidence))
}

// reportHandler renders a report for a diagnosis supplied by the client.
func (a *app) reportHandler(c *gin.Context) {
	var req struct {
		Plant      string  `json:"plant" binding:"required"`
		Disease    string  `json:"disease" binding:"required"`
		Confidence float64 `json:"confidence" binding:"gte=0,lte=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.sendReport(c, a.svc.ReportInput(req.Plant, req.Disease, req.Confidence))
}

func (a *app) sendReport(c *gin.Context, in report.Input) {
	var buf bytes.Buffer
	if err := a.renderer.Render(&buf, in); err != nil {
		kind := report.KindOf(err)
		slog.Error("report generation failed", "kind", kind.String(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": reportFailedMessage, "kind": kind.String()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

// listDiagnosesHandler returns the latest stored diagnoses.
func (a *app) listDiagnosesHandler(c *gin.Context) {
	rows, err := a.history.Recent(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
