package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "leafscan/internal/application"
	"leafscan/internal/domain/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

// Inspector то, что веб-слою нужно от сервиса проверок
type Inspector interface {
	Analyze(ctx context.Context, imageData []byte) (*app.InspectionOutput, error)
	Record(ctx context.Context, id string) (*entity.Record, error)
	Records(ctx context.Context, limit int) ([]*entity.Record, error)
	Ready() error
}

// Server страница загрузки фото и JSON API поверх gin.
type Server struct {
	inspector      Inspector
	log            logrus.FieldLogger
	maxUploadBytes int64
	router         *gin.Engine
}

// NewServer настраивает маршруты.
func NewServer(inspector Inspector, log logrus.FieldLogger, maxUploadBytes int64) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"confidence": app.FormatConfidence,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		inspector:      inspector,
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), s.limitBody())
	router.MaxMultipartMemory = maxUploadBytes
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.handleIndex)
	router.POST("/detect", s.handleDetectPage)
	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/api/v1")
	v1.POST("/detect", s.handleDetectAPI)
	v1.GET("/records", s.handleListRecords)
	v1.GET("/records/:id", s.handleGetRecord)
	v1.GET("/records/:id/annotated.jpg", s.handleRecordImage(true))
	v1.GET("/records/:id/original.jpg", s.handleRecordImage(false))

	s.router = router
	return s, nil
}

// Handler http.Handler для http.Server и тестов.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает addr до отмены ctx, затем плавно останавливается.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("web server is running")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger пишет каждый запрос в logrus.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(started).String(),
			"client":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// limitBody ограничивает размер тела запроса.
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.maxUploadBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
		}
		c.Next()
	}
}
