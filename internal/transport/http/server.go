package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/metrics"
	"carebook/backend/internal/service/booking"
	"carebook/backend/internal/store"
)

type bookingService interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (domain.Doctor, error)
	UpdateAvailability(ctx context.Context, doctorID uuid.UUID, in booking.AvailabilityInput) (domain.Doctor, error)
	NextDates(ctx context.Context, doctorID uuid.UUID) ([]time.Time, error)
	DaySchedule(ctx context.Context, doctorID uuid.UUID, date string) ([]booking.SlotStatus, error)
	Book(ctx context.Context, in booking.BookInput) (domain.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID, caller booking.Caller) (domain.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, caller booking.Caller, reason string) (domain.Appointment, error)
	ListForPatient(ctx context.Context, patientID string) ([]domain.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error)
}

type Server struct {
	svc bookingService
	log *slog.Logger
}

func NewServer(svc bookingService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc: svc,
		log: log.With(slog.String("component", "http.booking")),
	}
}

type RouterConfig struct {
	JWTSecret      string
	RequestTimeout time.Duration
	HealthCheck    func(ctx context.Context) error
}

func NewRouter(s *Server, collector *metrics.Collector, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Metrics(collector))
	r.Use(RequestTimeout(cfg.RequestTimeout))

	r.GET("/healthz", s.health(cfg.HealthCheck))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	api.Use(Auth(cfg.JWTSecret))
	{
		api.GET("/doctors/:id", s.getDoctor)
		api.PUT("/doctors/:id/availability", s.updateAvailability)
		api.GET("/doctors/:id/dates", s.nextDates)
		api.GET("/doctors/:id/slots", s.daySchedule)
		api.GET("/doctors/:id/appointments", s.listDoctorAppointments)

		api.POST("/appointments", s.book)
		api.GET("/appointments", s.listMyAppointments)
		api.GET("/appointments/:id", s.getAppointment)
		api.POST("/appointments/:id/confirm", s.confirm)
		api.POST("/appointments/:id/complete", s.complete)
		api.POST("/appointments/:id/cancel", s.cancel)
	}

	return r
}

func (s *Server) health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(c *gin.Context, err error, log *slog.Logger) {
	var vErr *booking.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, errorResponse{Error: vErr.Error()})
	case errors.Is(err, store.ErrSlotTaken):
		log.Info("slot conflict")
		c.JSON(http.StatusConflict, errorResponse{Error: "That slot was just taken. Pick a different time."})
	case errors.Is(err, store.ErrNotFound):
		log.Info("not found")
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		log.Warn("invalid status transition")
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		log.Warn("forbidden")
		c.JSON(http.StatusForbidden, errorResponse{Error: "access denied"})
	default:
		log.Error("request failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func parseIDParam(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: param + " must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}
