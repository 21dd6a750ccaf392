// Package middleware provides various middleware functionality.
package middleware

import (
	"errors"
	"net/http"

	restErrors "github.com/danilovkiri/dk-go-refill/internal/api/rest/errors"
	"github.com/danilovkiri/dk-go-refill/internal/models/modeldto"
	"github.com/go-chi/render"
)

// TechReporter reports whether maintenance mode is on.
type TechReporter interface {
	Tech() bool
}

// MaintenanceHandler sets object structure.
type MaintenanceHandler struct {
	tech TechReporter
}

// NewMaintenanceHandler initializes a new maintenance gate.
func NewMaintenanceHandler(tech TechReporter) (*MaintenanceHandler, error) {
	if tech == nil {
		return nil, errors.New("nil tech reporter was found")
	}
	return &MaintenanceHandler{tech: tech}, nil
}

// MaintenanceHandle refuses requests while maintenance mode is on.
func (m *MaintenanceHandler) MaintenanceHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tech.Tech() {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, modeldto.ErrorResponse{Error: restErrors.MsgMaintenance})
			return
		}
		next.ServeHTTP(w, r)
	})
}
