package models

import "time"

// Estados conocidos de una solicitud. Las transiciones las decide el backend.
const (
	SupportStateSent     = "Enviado"
	SupportStateAccepted = "Aceptado"
	SupportStateRejected = "Rechazado"
	SupportStateFinished = "Finalizado"
)

// SupportTypeVisit es el tipo por defecto cuando el backend no informa ninguno
const SupportTypeVisit = "Visita"

// SupportType representa un tipo de soporte (capacitación, visita, etc.)
type SupportType struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"min=1"`
}

// SupportState representa el estado de una solicitud
type SupportState struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"min=1"`
}

// SupportRecord representa una solicitud de capacitación o visita
type SupportRecord struct {
	ID           int          `json:"id" validate:"gt=0"`
	Code         string       `json:"code" validate:"min=1"`
	Date         time.Time    `json:"date" validate:"required"`
	Description  *string      `json:"description,omitempty"`
	Technician   Technician   `json:"technician"`
	Institute    Institute    `json:"institute"`
	SupportType  SupportType  `json:"supportType"`
	SupportState SupportState `json:"supportState"`
}

// SupportTypeName es la forma en que el backend lista los tipos disponibles
type SupportTypeName struct {
	Name string `json:"name" validate:"min=1"`
}

// CreateSupportRequest representa el formulario de nueva solicitud
type CreateSupportRequest struct {
	SupportType string  `json:"supportType" binding:"required"`
	Date        string  `json:"date" binding:"required,datetime=2006-01-02"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=1000"`
}

// TechnicianRef identifica al técnico asignado en el alta
type TechnicianRef struct {
	ID int `json:"id"`
}

// NewSupportPayload es el cuerpo enviado a POST /api/support/new
type NewSupportPayload struct {
	Code         string        `json:"code"`
	Institute    Institute     `json:"institute"`
	Date         string        `json:"date"`
	SupportType  string        `json:"supportType"`
	SupportState string        `json:"supportState"`
	Technician   TechnicianRef `json:"technician"`
	Description  *string       `json:"description,omitempty"`
}
