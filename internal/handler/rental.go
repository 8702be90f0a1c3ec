package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rentloop/rental-engine/internal/domain"
	"github.com/rentloop/rental-engine/internal/service"
	"github.com/rentloop/rental-engine/pkg/response"
)

type RentalHandler struct {
	rentals        *service.RentalService
	validator      *validator.Validate
	requestTimeout time.Duration
}

func NewRentalHandler(rentals *service.RentalService, requestTimeout time.Duration) *RentalHandler {
	return &RentalHandler{
		rentals:        rentals,
		validator:      validator.New(),
		requestTimeout: requestTimeout,
	}
}

// actorID reads the authenticated user from the X-User-ID header. Identity
// verification happens upstream; this service only needs the id.
func actorID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *RentalHandler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

// CreateRental handles POST /api/v1/rentals
func (h *RentalHandler) CreateRental(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.Unauthorized(w, "X-User-ID header required")
		return
	}

	var request domain.CreateRentalRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	request.RenterID = actor

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rental, err := h.rentals.CreateRental(ctx, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, domain.RentalResponse{Rental: rental})
}

// GetRental handles GET /api/v1/rentals/{rentalId}
func (h *RentalHandler) GetRental(w http.ResponseWriter, r *http.Request) {
	rentalID, ok := pathID(r, "rentalId")
	if !ok {
		response.BadRequest(w, "Invalid rental id", nil)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	result, err := h.rentals.GetRental(ctx, rentalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, result)
}

// ListRentals handles GET /api/v1/rentals?renter_id=|owner_id=&status=
func (h *RentalHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	var filter domain.ListRentalsFilter

	if raw := r.URL.Query().Get("renter_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid renter_id", err)
			return
		}
		filter.RenterID = &id
	}
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid owner_id", err)
			return
		}
		filter.OwnerID = &id
	}
	filter.Status = domain.RentalStatus(r.URL.Query().Get("status"))

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "Invalid limit", err)
			return
		}
		filter.Limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, "Invalid offset", err)
			return
		}
		filter.Offset = n
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rentals, err := h.rentals.ListRentals(ctx, filter)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, rentals)
}

// Accept handles POST /api/v1/rentals/{rentalId}/accept
func (h *RentalHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.Unauthorized(w, "X-User-ID header required")
		return
	}
	rentalID, ok := pathID(r, "rentalId")
	if !ok {
		response.BadRequest(w, "Invalid rental id", nil)
		return
	}

	var request domain.AcceptRentalRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rental, err := h.rentals.Accept(ctx, rentalID, actor, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.RentalResponse{Rental: rental})
}

// Reject handles POST /api/v1/rentals/{rentalId}/reject
func (h *RentalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.Unauthorized(w, "X-User-ID header required")
		return
	}
	rentalID, ok := pathID(r, "rentalId")
	if !ok {
		response.BadRequest(w, "Invalid rental id", nil)
		return
	}

	var request domain.RejectRentalRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rental, err := h.rentals.Reject(ctx, rentalID, actor, request.Reason)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.RentalResponse{Rental: rental})
}

// Cancel handles POST /api/v1/rentals/{rentalId}/cancel
func (h *RentalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.Unauthorized(w, "X-User-ID header required")
		return
	}
	rentalID, ok := pathID(r, "rentalId")
	if !ok {
		response.BadRequest(w, "Invalid rental id", nil)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rental, err := h.rentals.Cancel(ctx, rentalID, actor)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.RentalResponse{Rental: rental})
}

// Begin handles POST /api/v1/rentals/{rentalId}/begin
func (h *RentalHandler) Begin(w http.ResponseWriter, r *http.Request) {
	rentalID, ok := pathID(r, "rentalId")
	if !ok {
		response.BadRequest(w, "Invalid rental id", nil)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rental, err := h.rentals.Begin(ctx, rentalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.RentalResponse{Rental: rental})
}

// Complete handles POST /api/v1/rentals/{rentalId}/complete
func (h *RentalHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.Unauthorized(w, "X-User-ID header required")
		return
	}
	rentalID, ok := pathID(r, "rentalId")
	if !ok {
		response.BadRequest(w, "Invalid rental id", nil)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rental, err := h.rentals.Complete(ctx, rentalID, actor)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.RentalResponse{Rental: rental})
}
