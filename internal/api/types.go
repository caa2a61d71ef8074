package api

import (
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduler/internal/scheduling"
)

type ScheduleRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	SlotIndex int    `json:"slot_index"`
}

type RescheduleRequest struct {
	Date      string `json:"date"`
	SlotIndex int    `json:"slot_index"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      scheduling.FormatDate(a.Day),
		Time:      a.TimeSlot.String(),
		Status:    string(a.Status),
	}
}

type SlotResponse struct {
	Index     int    `json:"index"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
