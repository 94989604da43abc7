package server

import (
	"context"
	goerrors "errors"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	_ "vigil/docs"
	"vigil/internal/config"
	"vigil/internal/dao"
	"vigil/internal/model"
	"vigil/pkg/log"
)

// ObjectStore signs direct uploads of video files.
type ObjectStore interface {
	Bucket() string
	PresignedPost(ctx context.Context, key, contentType string, expire time.Duration) (string, map[string]string, error)
}

// InferenceRunner runs the detection task of a source in the background.
type InferenceRunner interface {
	Start(kind model.SourceKind, id int) error
	Stop(kind model.SourceKind, id int)
	Status(kind model.SourceKind, id int) (*dao.TaskStatus, error)
}

type noopRunner struct{}

func (noopRunner) Start(model.SourceKind, int) error { return nil }
func (noopRunner) Stop(model.SourceKind, int)        {}
func (noopRunner) Status(kind model.SourceKind, id int) (*dao.TaskStatus, error) {
	return &dao.TaskStatus{SourceKind: kind, SourceId: id, State: dao.TaskStateIdle}, nil
}

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	store      ObjectStore
	runner     InferenceRunner
	logger     *logrus.Entry
}

type Option func(*Server)

func WithObjectStore(store ObjectStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

func WithInferenceRunner(runner InferenceRunner) Option {
	return func(s *Server) {
		s.runner = runner
	}
}

func NewServer(ctx context.Context, conf *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		conf:   conf,
		runner: noopRunner{},
		logger: log.Component(ctx, "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		return nil, goerrors.New("object store is required")
	}
	return s, nil
}

func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(log.HttpXRequestId)
		if requestId == "" {
			requestId = strings.ReplaceAll(uuid.New().String(), "-", "")
		}
		c.Set(log.CtxRequestId, requestId)
		c.Header(log.HttpXRequestId, requestId)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		c.Next()
		latency := time.Since(t)
		status := c.Writer.Status()

		log.GetLogger(c).Info("ip: ", c.ClientIP(), " method: ", c.Request.Method, " path: ",
			c.Request.URL.Path, " status: ", status, " latency: ", latency)
	}
}

func (s *Server) Start() {
	gin.SetMode(gin.ReleaseMode)
	router := s.SetUpRouter()
	pprof.Register(router)
	s.httpServer = &http.Server{
		Addr:    s.conf.Addr,
		Handler: router,
	}

	var err error
	if s.conf.SSLCert != "" && s.conf.SSLKey != "" {
		s.logger.Infof("start https server on %s", s.conf.Addr)
		err = s.httpServer.ListenAndServeTLS(s.conf.SSLCert, s.conf.SSLKey)
	} else {
		s.logger.Infof("start http server on %s", s.conf.Addr)
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && !goerrors.Is(err, http.ErrServerClosed) {
		s.logger.Fatal(err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(c *gin.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		log.GetLogger(c).WithError(err).Error("request failed")
	}
	c.JSON(code, ErrorResponse{
		Error: err.Error(),
	})
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("content_type", func(fl validator.FieldLevel) bool {
			_, _, err := mime.ParseMediaType(fl.Field().String())
			return err == nil
		})
		v.RegisterValidation("stream_url", func(fl validator.FieldLevel) bool {
			u, err := url.Parse(fl.Field().String())
			if err != nil || u.Host == "" {
				return false
			}
			switch u.Scheme {
			case "rtsp", "rtsps", "rtmp", "http", "https", "srt", "udp":
				return true
			}
			return false
		})
	}
}
