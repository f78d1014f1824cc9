package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Servicio que consulta al microservicio externo de autenticación.
// La mecánica de auth no vive acá: solo validamos el token contra /users/current.
type AuthService struct {
	client *resty.Client
}

type AuthUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Login       string   `json:"login"`
	Enabled     bool     `json:"enabled"`
}

func NewAuthService(authURL string) *AuthService {
	client := resty.New().
		SetBaseURL(authURL).
		SetTimeout(5 * time.Second)
	return &AuthService{client: client}
}

// Verifica si el usuario tiene permiso de administrador.
func (a *AuthService) IsAdmin(user *AuthUser) bool {
	for _, perm := range user.Permissions {
		if perm == "admin" {
			return true
		}
	}
	return false
}

// Valida el token consultando a /users/current del microservicio de auth.
func (a *AuthService) ValidateToken(token string) (*AuthUser, error) {
	resp, err := a.client.R().
		SetHeader("Authorization", "Bearer "+token).
		Get("/users/current")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, errors.New("invalid token")
	}

	var user AuthUser
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, err
	}

	if !user.Enabled {
		return nil, errors.New("user disabled")
	}

	return &user, nil
}
