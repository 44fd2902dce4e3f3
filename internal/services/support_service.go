package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/portal-capacitaciones/internal/config"
	"github.com/hypernova-labs/portal-capacitaciones/internal/models"
	"github.com/hypernova-labs/portal-capacitaciones/internal/normalizer"
	"github.com/hypernova-labs/portal-capacitaciones/internal/schema"
	"github.com/hypernova-labs/portal-capacitaciones/internal/upstream"
	"github.com/sirupsen/logrus"
)

// SupportService maneja las solicitudes de capacitación y visita
type SupportService struct {
	backend     Backend
	normalizer  *normalizer.Normalizer
	strict      bool
	support     config.SupportConfig
	bodyPreview int
	now         func() time.Time
	logger      *logrus.Logger
}

// NewSupportService crea una nueva instancia del servicio
func NewSupportService(backend Backend, n *normalizer.Normalizer, cfg *config.Config, logger *logrus.Logger) *SupportService {
	return &SupportService{
		backend:     backend,
		normalizer:  n,
		strict:      cfg.IsStrict(),
		support:     cfg.Support,
		bodyPreview: cfg.Backend.BodyPreview,
		now:         time.Now,
		logger:      logger,
	}
}

type listSupportsState struct {
	dni      string
	director *models.Director
	raw      []any
	records  []models.SupportRecord
}

// ListInstituteSupports lista las solicitudes del instituto del director
func (s *SupportService) ListInstituteSupports(ctx context.Context, dni string) ([]models.SupportRecord, error) {
	state := &listSupportsState{dni: dni}

	err := runSteps(ctx, state,
		func(ctx context.Context, st *listSupportsState) error {
			director, err := lookupDirector(ctx, s.backend, s.logger, st.dni)
			st.director = director
			return err
		},
		func(ctx context.Context, st *listSupportsState) error {
			raw, err := s.backend.ListInstituteSupports(ctx, st.director.Institute.CUIT)
			if err != nil {
				return s.listFailure(err, st.director.Institute.CUIT)
			}
			st.raw = raw
			return nil
		},
		func(ctx context.Context, st *listSupportsState) error {
			records, err := s.normalizeSupports(st.raw, st.director.Institute.CUIT)
			st.records = records
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return state.records, nil
}

// normalizeSupports repara el lote y lo valida contra el schema de solicitudes
func (s *SupportService) normalizeSupports(raw []any, cuit string) ([]models.SupportRecord, error) {
	if len(raw) == 0 {
		return []models.SupportRecord{}, nil
	}

	candidates, repairs := s.normalizer.Supports(raw)
	if len(repairs) > 0 {
		entry := s.logger.WithFields(logrus.Fields{
			"cuit":    cuit,
			"records": len(raw),
			"repairs": len(repairs),
		})
		if s.strict {
			entry.Warn("Rejecting support records that needed repair")
			apiErr := models.NewBadRequestError("El backend devolvió solicitudes incompletas", nil)
			for _, r := range repairs {
				apiErr.Details = append(apiErr.Details, models.ErrorDetail{Field: r.Field, Issue: r.Reason})
			}
			return nil, apiErr
		}
		entry.Warn("Support records repaired before validation")
	}

	items := make([]any, len(candidates))
	for i, c := range candidates {
		items[i] = c
	}
	records, err := schema.DecodeList[models.SupportRecord]("solicitud", items)
	if err != nil {
		return nil, invalidPayload("Respuesta inválida del backend para las solicitudes", err)
	}
	return records, nil
}

func (s *SupportService) listFailure(err error, cuit string) error {
	var he *upstream.HTTPError
	if errors.As(err, &he) {
		message := fmt.Sprintf("Error al obtener el historial de visitas (status %d). Endpoint: %s. %s",
			he.Status, he.Path, he.Preview(s.bodyPreview))
		return upstreamFailure(err, models.ErrorCodeBadRequest, strings.TrimSpace(message))
	}
	if errors.Is(err, upstream.ErrInvalidPayload) {
		return models.NewBadRequestError("Respuesta inválida del backend para las solicitudes", err)
	}
	s.logger.WithError(err).WithField("cuit", cuit).Error("Error listing institute supports")
	return models.NewBadRequestError("Backend no disponible", err)
}

// ListSupportTypes lista los tipos de soporte que ofrece el backend
func (s *SupportService) ListSupportTypes(ctx context.Context) ([]models.SupportTypeName, error) {
	raw, err := s.backend.ListSupportTypes(ctx)
	if err != nil {
		return nil, upstreamFailure(err, models.ErrorCodeNotFound, "Tipos de soporte no encontrados")
	}
	types, err := schema.DecodeList[models.SupportTypeName]("tipo de soporte", raw)
	if err != nil {
		return nil, invalidPayload("Respuesta inválida del backend para los tipos de soporte", err)
	}
	return types, nil
}

type createSupportState struct {
	dni      string
	director *models.Director
	payload  models.NewSupportPayload
	created  map[string]any
}

// CreateSupport da de alta una solicitud para el instituto del director
func (s *SupportService) CreateSupport(ctx context.Context, dni string, req *models.CreateSupportRequest) (map[string]any, error) {
	state := &createSupportState{dni: dni}

	err := runSteps(ctx, state,
		func(ctx context.Context, st *createSupportState) error {
			director, err := lookupDirector(ctx, s.backend, s.logger, st.dni)
			st.director = director
			return err
		},
		func(ctx context.Context, st *createSupportState) error {
			payload, err := s.buildPayload(st.director, req)
			st.payload = payload
			return err
		},
		func(ctx context.Context, st *createSupportState) error {
			created, err := s.backend.CreateSupport(ctx, st.payload)
			if err != nil {
				return s.createFailure(err)
			}
			st.created = created
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"code":         state.payload.Code,
		"cuit":         state.director.Institute.CUIT,
		"support_type": state.payload.SupportType,
	}).Info("Support request created")

	return state.created, nil
}

func (s *SupportService) buildPayload(director *models.Director, req *models.CreateSupportRequest) (models.NewSupportPayload, error) {
	supportType := strings.TrimSpace(req.SupportType)
	if supportType == "" {
		return models.NewSupportPayload{}, models.NewValidationError("Datos de solicitud inválidos", []models.ErrorDetail{
			{Field: "supportType", Issue: "Elegí un tipo"},
		})
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return models.NewSupportPayload{}, models.NewValidationError("Datos de solicitud inválidos", []models.ErrorDetail{
			{Field: "date", Issue: "Elegí una fecha"},
		})
	}

	description := s.support.DefaultDescription
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		description = strings.TrimSpace(*req.Description)
	}

	payload := models.NewSupportPayload{
		Code:         s.newCode(),
		Institute:    director.Institute,
		Date:         date.Format("2006-01-02") + "T00:00:00",
		SupportType:  supportType,
		SupportState: s.support.InitialState,
		Technician:   models.TechnicianRef{ID: s.support.TechnicianID},
	}
	if description != "" {
		payload.Description = &description
	}
	return payload, nil
}

// newCode genera el código de la solicitud: REQ-AAMMDD-xxxxxxxx
func (s *SupportService) newCode() string {
	return fmt.Sprintf("REQ-%s-%s", s.now().Format("060102"), uuid.New().String()[:8])
}

func (s *SupportService) createFailure(err error) error {
	var he *upstream.HTTPError
	if !errors.As(err, &he) {
		s.logger.WithError(err).Error("Error creating support request")
		return models.NewBadRequestError("Backend no disponible", err)
	}

	message := he.Preview(s.bodyPreview)
	if message == "" {
		message = fmt.Sprintf("Error HTTP %d", he.Status)
	}
	code := models.ErrorCodeBadRequest
	if he.Status == http.StatusUnauthorized {
		code = models.ErrorCodeUnauthorized
	}
	return upstreamFailure(err, code, message)
}
