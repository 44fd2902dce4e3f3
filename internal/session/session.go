// Package session resuelve la identidad del usuario que llama.
//
// La sesión la emite otro componente (el flujo de inicio de sesión) como un
// JWT HS256 con el claim userId, que contiene el DNI del director. Acá solo se
// verifica. Una sesión ausente y una inválida son indistinguibles para quien
// consume la identidad.
package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName es la cookie donde viaja la sesión
const DefaultCookieName = "session"

// ErrNoSession se devuelve cuando no hay una sesión válida
var ErrNoSession = errors.New("session: no valid session")

// Accessor resuelve la identidad de la petición en curso
type Accessor interface {
	Identity(r *http.Request) (string, error)
}

// Claims son los claims de la sesión
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWTAccessor verifica la sesión firmada con un secreto compartido
type JWTAccessor struct {
	secret []byte
	cookie string
}

// NewJWTAccessor crea un accessor. cookie vacío usa DefaultCookieName.
func NewJWTAccessor(secret, cookie string) *JWTAccessor {
	if cookie == "" {
		cookie = DefaultCookieName
	}
	return &JWTAccessor{secret: []byte(secret), cookie: cookie}
}

// Identity devuelve el DNI de la sesión o ErrNoSession
func (a *JWTAccessor) Identity(r *http.Request) (string, error) {
	token := a.token(r)
	if token == "" {
		return "", ErrNoSession
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrNoSession
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		return "", ErrNoSession
	}
	return userID, nil
}

// token prioriza la cookie; el header Authorization queda para clientes no navegador
func (a *JWTAccessor) token(r *http.Request) string {
	if c, err := r.Cookie(a.cookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
