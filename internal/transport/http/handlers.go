package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/service/booking"
)

type doctorResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Profession string   `json:"profession"`
	Days       []string `json:"days"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
}

func toDoctorResponse(d domain.Doctor) doctorResponse {
	return doctorResponse{
		ID:         d.ID.String(),
		Name:       d.Name,
		Profession: d.Profession,
		Days:       d.AvailabilityDays,
		StartTime:  d.StartTime,
		EndTime:    d.EndTime,
	}
}

type appointmentResponse struct {
	ID               string `json:"id"`
	DoctorID         string `json:"doctor_id"`
	DoctorName       string `json:"doctor_name"`
	DoctorProfession string `json:"doctor_profession"`
	PatientID        string `json:"patient_id"`
	PatientName      string `json:"patient_name"`
	Date             string `json:"date"`
	DateLabel        string `json:"date_label"`
	Slot             string `json:"slot"`
	Reason           string `json:"reason,omitempty"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"payment_status"`
	CancelReason     string `json:"cancel_reason,omitempty"`
	CancelledBy      string `json:"cancelled_by,omitempty"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:               a.ID.String(),
		DoctorID:         a.DoctorID.String(),
		DoctorName:       a.DoctorName,
		DoctorProfession: a.Profession,
		PatientID:        a.PatientID,
		PatientName:      a.PatientName,
		Date:             a.Date,
		DateLabel:        a.DateLabel,
		Slot:             a.Slot,
		Reason:           a.Reason,
		Status:           string(a.Status),
		PaymentStatus:    string(a.PaymentStatus),
		CancelReason:     a.CancellationReason,
		CancelledBy:      a.CancelledBy,
	}
}

func toAppointmentList(as []domain.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(as))
	for _, a := range as {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func callerFrom(id Identity) booking.Caller {
	return booking.Caller{ID: id.Subject, Role: id.Role}
}

// requireDoctor allows only the doctor acting on their own resources.
func (s *Server) requireDoctor(c *gin.Context, doctorID uuid.UUID) (Identity, bool) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return Identity{}, false
	}
	if id.Role != booking.RoleDoctor || id.Subject != doctorID.String() {
		c.JSON(http.StatusForbidden, errorResponse{Error: "access denied"})
		return Identity{}, false
	}
	return id, true
}

func (s *Server) getDoctor(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	d, err := s.svc.GetDoctor(c.Request.Context(), doctorID)
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("doctor_id", doctorID.String())))
		return
	}
	c.JSON(http.StatusOK, toDoctorResponse(d))
}

type updateAvailabilityRequest struct {
	Days      []string `json:"days"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

func (s *Server) updateAvailability(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := s.requireDoctor(c, doctorID); !ok {
		return
	}

	var req updateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	d, err := s.svc.UpdateAvailability(c.Request.Context(), doctorID, booking.AvailabilityInput{
		Days:      req.Days,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("doctor_id", doctorID.String())))
		return
	}
	c.JSON(http.StatusOK, toDoctorResponse(d))
}

type nextDatesResponse struct {
	Dates []dateOption `json:"dates"`
}

type dateOption struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

func (s *Server) nextDates(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dates, err := s.svc.NextDates(c.Request.Context(), doctorID)
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("doctor_id", doctorID.String())))
		return
	}

	out := nextDatesResponse{Dates: make([]dateOption, 0, len(dates))}
	for _, d := range dates {
		out.Dates = append(out.Dates, dateOption{
			Date:  d.Format(domain.DateLayout),
			Label: d.Format(domain.DateLabelLayout),
		})
	}
	c.JSON(http.StatusOK, out)
}

type dayScheduleResponse struct {
	Date  string       `json:"date"`
	Slots []slotStatus `json:"slots"`
}

type slotStatus struct {
	Label    string `json:"label"`
	Reserved bool   `json:"reserved"`
}

func (s *Server) daySchedule(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	date := c.Query("date")

	slots, err := s.svc.DaySchedule(c.Request.Context(), doctorID, date)
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("doctor_id", doctorID.String())))
		return
	}

	out := dayScheduleResponse{Date: date, Slots: make([]slotStatus, 0, len(slots))}
	for _, sl := range slots {
		out.Slots = append(out.Slots, slotStatus{Label: sl.Label, Reserved: sl.Reserved})
	}
	c.JSON(http.StatusOK, out)
}

type bookRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Slot     string `json:"slot"`
	Reason   string `json:"reason"`
}

func (s *Server) book(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "doctor_id must be a UUID"})
		return
	}

	appt, err := s.svc.Book(c.Request.Context(), booking.BookInput{
		DoctorID:    doctorID,
		PatientID:   id.Subject,
		PatientName: id.Name,
		Date:        req.Date,
		Slot:        req.Slot,
		Reason:      req.Reason,
	})
	if err != nil {
		s.respondError(c, err, s.log.With(
			slog.String("doctor_id", req.DoctorID),
			slog.String("date", req.Date),
			slog.String("slot", req.Slot),
		))
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) getAppointment(c *gin.Context) {
	apptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	appt, err := s.svc.GetAppointment(c.Request.Context(), apptID, callerFrom(id))
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("appointment_id", apptID.String())))
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) confirm(c *gin.Context) {
	s.doctorTransition(c, s.svc.Confirm)
}

func (s *Server) complete(c *gin.Context) {
	s.doctorTransition(c, s.svc.Complete)
}

// doctorTransition runs confirm/complete on behalf of the doctor who owns
// the appointment.
func (s *Server) doctorTransition(c *gin.Context, step func(context.Context, uuid.UUID) (domain.Appointment, error)) {
	apptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	log := s.log.With(slog.String("appointment_id", apptID.String()))

	appt, err := s.svc.GetAppointment(c.Request.Context(), apptID, callerFrom(id))
	if err != nil {
		s.respondError(c, err, log)
		return
	}
	if id.Role != booking.RoleDoctor || id.Subject != appt.DoctorID.String() {
		c.JSON(http.StatusForbidden, errorResponse{Error: "access denied"})
		return
	}

	appt, err = step(c.Request.Context(), apptID)
	if err != nil {
		s.respondError(c, err, log)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) cancel(c *gin.Context) {
	apptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
			return
		}
	}

	appt, err := s.svc.Cancel(c.Request.Context(), apptID, callerFrom(id), req.Reason)
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("appointment_id", apptID.String())))
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) listMyAppointments(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	appts, err := s.svc.ListForPatient(c.Request.Context(), id.Subject)
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("patient_id", id.Subject)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": toAppointmentList(appts)})
}

func (s *Server) listDoctorAppointments(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := s.requireDoctor(c, doctorID); !ok {
		return
	}

	appts, err := s.svc.ListForDoctor(c.Request.Context(), doctorID)
	if err != nil {
		s.respondError(c, err, s.log.With(slog.String("doctor_id", doctorID.String())))
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": toAppointmentList(appts)})
}
