package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hypernova-labs/portal-capacitaciones/internal/models"
	"github.com/hypernova-labs/portal-capacitaciones/internal/schema"
	"github.com/hypernova-labs/portal-capacitaciones/internal/services"
	"github.com/hypernova-labs/portal-capacitaciones/internal/session"
	"github.com/hypernova-labs/portal-capacitaciones/internal/upstream"
	"github.com/sirupsen/logrus"
)

const (
	identityKey     = "dni"
	requestIDHeader = "X-Request-Id"
)

var bindingTrans ut.Translator

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		t, err := schema.NewTranslator(v)
		if err != nil {
			panic(fmt.Sprintf("api: registering translations: %v", err))
		}
		bindingTrans = t
	}
}

// API maneja todos los endpoints que consume la interfaz del portal
type API struct {
	directorService *services.DirectorService
	supportService  *services.SupportService
	sessions        session.Accessor
	logger          *logrus.Logger
}

// NewAPI crea una nueva instancia de la API
func NewAPI(
	directorService *services.DirectorService,
	supportService *services.SupportService,
	sessions session.Accessor,
	logger *logrus.Logger,
) *API {
	return &API{
		directorService: directorService,
		supportService:  supportService,
		sessions:        sessions,
		logger:          logger,
	}
}

// Register monta las rutas v1 sobre r
func (api *API) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.Use(RequestID(), api.SessionMiddleware())
	{
		// Perfil
		v1.GET("/perfil", api.GetDirector)
		v1.PUT("/perfil", api.UpdateDirector)

		// Historial de capacitaciones y visitas
		v1.GET("/capacitaciones", api.ListInstituteSupports)

		// Nueva solicitud
		v1.GET("/solicitudes/tipos", api.ListSupportTypes)
		v1.POST("/solicitudes", api.CreateSupport)
	}
}

// GetDirector devuelve el perfil del director de la sesión
func (api *API) GetDirector(c *gin.Context) {
	director, err := api.directorService.GetDirector(c.Request.Context(), identity(c))
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, director)
}

// UpdateDirector actualiza los datos editables del perfil
func (api *API) UpdateDirector(c *gin.Context) {
	var req models.UpdateDirectorRequest
	if !api.bind(c, &req) {
		return
	}

	director, err := api.directorService.UpdateDirector(c.Request.Context(), identity(c), &req)
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, director)
}

// ListInstituteSupports devuelve las solicitudes del instituto del director
func (api *API) ListInstituteSupports(c *gin.Context) {
	records, err := api.supportService.ListInstituteSupports(c.Request.Context(), identity(c))
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListSupportTypes devuelve los tipos de soporte disponibles
func (api *API) ListSupportTypes(c *gin.Context) {
	types, err := api.supportService.ListSupportTypes(c.Request.Context())
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// CreateSupport da de alta una nueva solicitud
func (api *API) CreateSupport(c *gin.Context) {
	var req models.CreateSupportRequest
	if !api.bind(c, &req) {
		return
	}

	created, err := api.supportService.CreateSupport(c.Request.Context(), identity(c), &req)
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// SessionMiddleware resuelve la identidad de la sesión. Nunca se toma un DNI
// enviado por el cliente.
func (api *API) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		dni, err := api.sessions.Identity(c.Request)
		if err != nil || dni == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("Sesión requerida").Response())
			return
		}
		c.Set(identityKey, dni)
		c.Next()
	}
}

// RequestID propaga o genera el id de correlación hacia el backend
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(upstream.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func identity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// bind deserializa el cuerpo y responde INVALID_REQUEST con un detalle por campo
func (api *API) bind(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	api.logger.WithError(err).Debug("Error binding request")

	var details []models.ErrorDetail
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details = append(details, models.ErrorDetail{Field: fe.Field(), Issue: schema.Message(fe, bindingTrans)})
		}
	} else {
		details = []models.ErrorDetail{{Field: "body", Issue: err.Error()}}
	}
	c.JSON(http.StatusBadRequest, models.NewValidationError("Datos inválidos", details).Response())
	return false
}

// respondError traduce un error de servicio a la respuesta estándar
func (api *API) respondError(c *gin.Context, err error) {
	apiErr := models.AsAPIError(err)
	status := statusFor(apiErr.Code)

	entry := api.logger.WithError(err).WithFields(logrus.Fields{
		"code":            apiErr.Code,
		"path":            c.FullPath(),
		"upstream_status": apiErr.UpstreamStatus,
		"request_id":      upstream.RequestID(c.Request.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}

	c.JSON(status, apiErr.Response())
}

func statusFor(code models.ErrorCode) int {
	switch code {
	case models.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case models.ErrorCodeNotFound:
		return http.StatusNotFound
	case models.ErrorCodeInvalidRequest:
		return http.StatusBadRequest
	case models.ErrorCodeBadRequest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
