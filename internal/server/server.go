package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"imagefeed/internal/models"
	"imagefeed/internal/storage"
)

// Tracker is the slice of the storage layer the HTTP boundary needs.
type Tracker interface {
	CreateBatch(ctx context.Context, id uuid.UUID) error
	GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error)
}

// Publisher hands a batch id off for asynchronous processing.
// *kafka.Writer satisfies it.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Server struct {
	cfg      *models.Config
	router   *gin.Engine
	tracker  Tracker
	producer Publisher
}

func NewServer(cfg *models.Config, tracker Tracker, producer Publisher) *Server {
	r := gin.Default()

	s := &Server{cfg: cfg, router: r, tracker: tracker, producer: producer}

	r.POST("/submit", s.handleSubmit)
	r.GET("/status/:requestId", s.handleStatus)

	return s
}

func (s *Server) Start() error {
	return s.router.Run(s.cfg.ServerAddr)
}

func (s *Server) Stop() {
	// No shutdown needed for gin
}

// handleSubmit allocates a batch id, records it as pending, and hands
// it off to the pipeline consumer. The input feed location is fixed by
// configuration, so the request carries no body. Processing outcome is
// never reflected here: the response is 202 regardless of how many
// images eventually fail.
func (s *Server) handleSubmit(c *gin.Context) {
	const op = "server.handleSubmit"

	id := uuid.New()
	if err := s.tracker.CreateBatch(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	err := s.producer.WriteMessages(c.Request.Context(), kafka.Message{Value: []byte(id.String())})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"request_id": id.String()})
}

func (s *Server) handleStatus(c *gin.Context) {
	const op = "server.handleStatus"

	id, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	batch, err := s.tracker.GetBatch(c.Request.Context(), id)
	if errors.Is(err, storage.ErrBatchNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "request not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request_id": batch.ID.String(), "status": batch.Status})
}
