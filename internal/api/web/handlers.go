package web

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	app "leafscan/internal/application"
	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
	"leafscan/internal/infrastructure/imageio"
)

const (
	formField         = "image"
	defaultRecordsMax = 20
)

var errFileType = errors.New("file type is not allowed, use " + strings.Join(imageio.AllowedExtensions(), ", "))

// pageData модель шаблона page.html
type pageData struct {
	Accept      string
	ModelError  string
	Uploaded    template.URL
	Annotated   template.URL
	Error       string
	Prediction  string // ошибка модели, показывается вместе с «ничего не найдено»
	Result      *entity.InspectionResult
	RecordID    string
	Description string
}

// detectionResponse ответ POST /api/v1/detect
type detectionResponse struct {
	RecordID       string             `json:"record_id,omitempty"`
	ImageWidth     int                `json:"image_width"`
	ImageHeight    int                `json:"image_height"`
	Detections     []entity.Detection `json:"detections"`
	Summary        string             `json:"summary"`
	Description    string             `json:"description,omitempty"`
	AnnotatedImage string             `json:"annotated_image,omitempty"`
}

// recordResponse сохранённая проверка без снимков
type recordResponse struct {
	ID         string             `json:"id"`
	Timestamp  string             `json:"timestamp"`
	Detections []entity.Detection `json:"predictions"`
	Original   string             `json:"original_image_url,omitempty"`
	Annotated  string             `json:"annotated_image_url,omitempty"`
}

func (s *Server) newPage() pageData {
	page := pageData{Accept: acceptAttr()}
	if err := s.inspector.Ready(); err != nil {
		page.ModelError = err.Error()
	}
	return page
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "page.html", s.newPage())
}

func (s *Server) handleDetectPage(c *gin.Context) {
	page := s.newPage()
	if page.ModelError != "" {
		c.HTML(http.StatusServiceUnavailable, "page.html", page)
		return
	}

	data, err := readUpload(c)
	if err != nil {
		page.Error = err.Error()
		c.HTML(uploadStatus(err), "page.html", page)
		return
	}
	page.Uploaded = dataURL(http.DetectContentType(data), data)

	out, err := s.inspector.Analyze(c.Request.Context(), data)
	if errors.Is(err, app.ErrPrediction) {
		_ = c.Error(err)
		page.Prediction = strings.TrimPrefix(err.Error(), app.ErrPrediction.Error()+": ")
		page.Result = entity.NewInspectionResult(0, 0, nil)
		c.HTML(http.StatusOK, "page.html", page)
		return
	}
	if err != nil {
		_ = c.Error(err)
		page.Error = err.Error()
		c.HTML(analyzeStatus(err), "page.html", page)
		return
	}

	page.Result = out.Result
	page.RecordID = out.RecordID
	if len(out.Annotated) > 0 {
		page.Annotated = dataURL("image/jpeg", out.Annotated)
	}
	if out.Description != nil {
		page.Description = out.Description.Text
	}
	c.HTML(http.StatusOK, "page.html", page)
}

func (s *Server) handleDetectAPI(c *gin.Context) {
	if err := s.inspector.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model is not loaded: " + err.Error()})
		return
	}

	data, err := readUpload(c)
	if err != nil {
		c.JSON(uploadStatus(err), gin.H{"error": err.Error()})
		return
	}

	out, err := s.inspector.Analyze(c.Request.Context(), data)
	if err != nil {
		_ = c.Error(err)
		c.JSON(analyzeStatus(err), gin.H{"error": err.Error()})
		return
	}

	resp := detectionResponse{
		RecordID:    out.RecordID,
		ImageWidth:  out.Result.ImageWidth,
		ImageHeight: out.Result.ImageHeight,
		Detections:  out.Result.Detections,
		Summary:     app.Summary(out.Result.Detections),
	}
	if resp.Detections == nil {
		resp.Detections = []entity.Detection{}
	}
	if out.Description != nil {
		resp.Description = out.Description.Text
	}
	if c.Query("annotated") == "true" && len(out.Annotated) > 0 {
		resp.AnnotatedImage = base64.StdEncoding.EncodeToString(out.Annotated)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListRecords(c *gin.Context) {
	limit := defaultRecordsMax
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.inspector.Records(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list records"})
		return
	}

	resp := make([]recordResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, toRecordResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"records": resp})
}

func (s *Server) handleGetRecord(c *gin.Context) {
	record, ok := s.lookupRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleRecordImage(annotated bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := s.lookupRecord(c)
		if !ok {
			return
		}

		data := record.Original
		if annotated {
			data = record.Annotated
		}
		if len(data) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not stored"})
			return
		}
		c.Data(http.StatusOK, "image/jpeg", data)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.inspector.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) lookupRecord(c *gin.Context) (*entity.Record, bool) {
	record, err := s.inspector.Record(c.Request.Context(), c.Param("id"))
	if errors.Is(err, port.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return nil, false
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load record"})
		return nil, false
	}
	return record, true
}

// readUpload читает файл из multipart-поля image.
func readUpload(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		return nil, fmt.Errorf("picture is missing: %w", err)
	}
	if !imageio.AllowedExtension(header.Filename) {
		return nil, errFileType
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func uploadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func analyzeStatus(err error) int {
	if errors.Is(err, app.ErrInvalidImage) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func toRecordResponse(r *entity.Record) recordResponse {
	resp := recordResponse{
		ID:         r.ID,
		Timestamp:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Detections: r.Detections,
	}
	if resp.Detections == nil {
		resp.Detections = []entity.Detection{}
	}
	base := "/api/v1/records/" + r.ID
	if len(r.Original) > 0 {
		resp.Original = base + "/original.jpg"
	}
	if len(r.Annotated) > 0 {
		resp.Annotated = base + "/annotated.jpg"
	}
	return resp
}

func acceptAttr() string {
	exts := imageio.AllowedExtensions()
	parts := make([]string, len(exts))
	for i, ext := range exts {
		parts[i] = "." + ext
	}
	return strings.Join(parts, ",")
}

// dataURL встраивает картинку прямо в страницу.
func dataURL(contentType string, data []byte) template.URL {
	return template.URL("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
}
