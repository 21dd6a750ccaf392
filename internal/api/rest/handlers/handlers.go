// Package handlers provides API endpoint handling functionality.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	restErrors "github.com/danilovkiri/dk-go-refill/internal/api/rest/errors"
	"github.com/danilovkiri/dk-go-refill/internal/api/rest/middleware"
	clientErrors "github.com/danilovkiri/dk-go-refill/internal/client/errors"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/danilovkiri/dk-go-refill/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-refill/internal/service/processor"
	serviceErrors "github.com/danilovkiri/dk-go-refill/internal/service/processor/errors"
	storageErrors "github.com/danilovkiri/dk-go-refill/internal/storage/errors"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	service      processor.Processor
	tech         middleware.TechReporter
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(mainService processor.Processor, tech middleware.TechReporter, serverConfig *config.ServerConfig, log *zerolog.Logger) (*Handler, error) {
	if mainService == nil {
		return nil, &restErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	if tech == nil {
		return nil, &restErrors.HandlersFoundNilArgument{Msg: "nil tech reporter was passed to handlers initializer"}
	}
	return &Handler{service: mainService, tech: tech, serverConfig: serverConfig, log: log}, nil
}

// HandleCreateOrder processes plain order creation requests.
func (h *Handler) HandleCreateOrder() http.HandlerFunc {
	return h.handleNewOrder("HandleCreateOrder", h.service.CreateOrder)
}

// HandlePlaceOrder processes order requests that go through login verification and notification first.
func (h *Handler) HandlePlaceOrder() http.HandlerFunc {
	return h.handleNewOrder("HandlePlaceOrder", h.service.PlaceOrder)
}

type orderFunc func(ctx context.Context, order modeldto.NewOrder) (*modeldto.OrderCreated, error)

func (h *Handler) handleNewOrder(name string, create orderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.RequestTimeout)
		defer cancel()
		log := h.logger(r)
		var newOrder modeldto.NewOrder
		if err := render.DecodeJSON(r.Body, &newOrder); err != nil {
			log.Error().Err(err).Msg(name + " failed")
			h.respondError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Info().Msg(fmt.Sprintf("new order request detected for %s", newOrder.Platform))
		created, err := create(ctx, newOrder)
		if err != nil {
			log.Error().Err(err).Msg(name + " failed")
			h.handleError(w, r, err)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, created)
	}
}

// HandleGetOrder processes stored order queries.
func (h *Handler) HandleGetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.RequestTimeout)
		defer cancel()
		order, err := h.service.GetOrder(ctx, chi.URLParam(r, "orderID"))
		if err != nil {
			h.logger(r).Error().Err(err).Msg("HandleGetOrder failed")
			h.handleError(w, r, err)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, order)
	}
}

// HandleTech reports the maintenance flag to the front-end.
func (h *Handler) HandleTech() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, modeldto.TechStatus{Tech: h.tech.Tech()})
	}
}

// HandleMethodNotAllowed answers requests with an unsupported method.
func (h *Handler) HandleMethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, http.StatusMethodNotAllowed, restErrors.MsgMethodNotAllowed, nil)
	}
}

// handleError maps workflow errors to responses.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationError *serviceErrors.ValidationError
	var rejectedError *clientErrors.RejectedError
	var verificationError *serviceErrors.VerificationError
	var notFoundError *storageErrors.NotFoundError
	var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
	switch {
	case errors.As(err, &validationError):
		h.respondError(w, r, http.StatusBadRequest, validationError.Msg, nil)
	case errors.As(err, &rejectedError):
		code := rejectedError.Code
		h.respondError(w, r, http.StatusBadRequest, restErrors.MsgLoginRejected, &code)
	case errors.As(err, &verificationError):
		h.respondError(w, r, http.StatusInternalServerError, restErrors.MsgVerificationFailed, nil)
	case errors.As(err, &notFoundError):
		h.respondError(w, r, http.StatusNotFound, restErrors.MsgOrderNotFound, nil)
	case errors.As(err, &contextTimeoutExceededError) || errors.Is(err, context.DeadlineExceeded):
		h.respondError(w, r, http.StatusGatewayTimeout, restErrors.MsgTimeout, nil)
	default:
		h.respondError(w, r, http.StatusInternalServerError, err.Error(), nil)
	}
}

// logger prefers the request-scoped logger set by the request logging middleware.
func (h *Handler) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return h.log
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, msg string, code *int) {
	render.Status(r, status)
	render.JSON(w, r, modeldto.ErrorResponse{Error: msg, ErrorCode: code})
}
