package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rentloop/rental-engine/internal/domain"
	"github.com/rentloop/rental-engine/internal/service"
	"github.com/rentloop/rental-engine/pkg/response"
)

type EscrowHandler struct {
	escrows        *service.EscrowService
	validator      *validator.Validate
	requestTimeout time.Duration
}

func NewEscrowHandler(escrows *service.EscrowService, requestTimeout time.Duration) *EscrowHandler {
	return &EscrowHandler{
		escrows:        escrows,
		validator:      validator.New(),
		requestTimeout: requestTimeout,
	}
}

// Dispute handles POST /api/v1/escrows/{escrowId}/dispute
func (h *EscrowHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.Unauthorized(w, "X-User-ID header required")
		return
	}

	escrowID, err := uuid.Parse(mux.Vars(r)["escrowId"])
	if err != nil {
		response.BadRequest(w, "Invalid escrow id", err)
		return
	}

	var request domain.DisputeEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	dispute, err := h.escrows.Dispute(ctx, escrowID, actor, request.Reason)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, dispute)
}

// GetRentalEscrow handles GET /api/v1/rentals/{rentalId}/escrow
func (h *EscrowHandler) GetRentalEscrow(w http.ResponseWriter, r *http.Request) {
	rentalID, ok := pathID(r, "rentalId")
	if !ok {
		response.BadRequest(w, "Invalid rental id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.escrows.GetByRentalID(ctx, rentalID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, result)
}
