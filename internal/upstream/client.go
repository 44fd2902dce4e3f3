package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Rutas del backend
const (
	pathDirector         = "/api/directors/%s"
	pathInstituteSupport = "/api/support/institute/%s"
	pathSupportTypes     = "/api/support-types/all-types"
	pathNewSupport       = "/api/support/new"
)

// ErrInvalidPayload indica que el backend respondió 2xx con un cuerpo que no es JSON válido
var ErrInvalidPayload = errors.New("upstream: invalid JSON payload")

// HTTPError envuelve códigos de estado no exitosos del backend
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

// Error imprime el estado y el cuerpo asociado
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s -> HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Preview devuelve el cuerpo recortado a max caracteres
func (e *HTTPError) Preview(max int) string {
	return Truncate(e.Body, max)
}

// IsStatus informa si err es un HTTPError con el status indicado
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}

// Truncate recorta s a max runas
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

type requestIDKey struct{}

// WithRequestID asocia un id de correlación que se propaga al backend
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID devuelve el id de correlación del contexto, si existe
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client habla con la API del backend. No cachea ni reintenta.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient crea un cliente contra baseURL
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Response es una respuesta 2xx ya leída
type Response struct {
	Status int
	Body   []byte
}

// NoContent informa si el backend respondió sin cuerpo
func (r *Response) NoContent() bool {
	return r.Status == http.StatusNoContent || len(bytes.TrimSpace(r.Body)) == 0
}

// Decode deserializa el cuerpo como JSON genérico
func (r *Response) Decode() (any, error) {
	var out any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, nil
}

// GetDirector obtiene el director con el DNI indicado
func (c *Client) GetDirector(ctx context.Context, dni string) (any, error) {
	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf(pathDirector, url.PathEscape(dni)), nil)
	if err != nil {
		return nil, err
	}
	return resp.Decode()
}

// UpdateDirector reemplaza los datos del director con el DNI indicado.
// Devuelve nil si el backend no informa el registro actualizado.
func (c *Client) UpdateDirector(ctx context.Context, dni string, payload any) (any, error) {
	resp, err := c.Do(ctx, http.MethodPut, fmt.Sprintf(pathDirector, url.PathEscape(dni)), payload)
	if err != nil {
		return nil, err
	}
	if resp.NoContent() {
		return nil, nil
	}
	return resp.Decode()
}

// ListInstituteSupports obtiene las solicitudes del instituto con el CUIT
// indicado. Un 204 se interpreta como lista vacía.
func (c *Client) ListInstituteSupports(ctx context.Context, cuit string) ([]any, error) {
	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf(pathInstituteSupport, url.PathEscape(cuit)), nil)
	if err != nil {
		return nil, err
	}
	if resp.NoContent() {
		return []any{}, nil
	}
	raw, err := resp.Decode()
	if err != nil {
		return nil, err
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: se esperaba un arreglo, se recibió %T", ErrInvalidPayload, raw)
	}
	return items, nil
}

// ListSupportTypes obtiene los tipos de soporte disponibles
func (c *Client) ListSupportTypes(ctx context.Context) (any, error) {
	resp, err := c.Do(ctx, http.MethodGet, pathSupportTypes, nil)
	if err != nil {
		return nil, err
	}
	if resp.NoContent() {
		return []any{}, nil
	}
	return resp.Decode()
}

// CreateSupport da de alta una solicitud. La forma de la respuesta no está
// garantizada: se devuelve el objeto recibido o un objeto vacío.
func (c *Client) CreateSupport(ctx context.Context, payload any) (map[string]any, error) {
	resp, err := c.Do(ctx, http.MethodPost, pathNewSupport, payload)
	if err != nil {
		return nil, err
	}
	created := map[string]any{}
	if resp.NoContent() {
		return created, nil
	}
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		c.logger.WithError(err).Debug("Create support response is not a JSON object")
		return map[string]any{}, nil
	}
	return created, nil
}

// Do ejecuta una petición JSON. Los status fuera de 2xx se devuelven como *HTTPError.
func (c *Client) Do(ctx context.Context, method, path string, in any) (*Response, error) {
	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("upstream: marshal payload: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if id := RequestID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Warn("Backend unreachable")
		return nil, fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: read body: %w", err)
	}

	fields := logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
		"request_id": RequestID(ctx),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(fields).WithField("body", string(body)).Debug("Backend returned non-success status")
		return nil, &HTTPError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	c.logger.WithFields(fields).Debug("Backend call completed")
	return &Response{Status: resp.StatusCode, Body: body}, nil
}
