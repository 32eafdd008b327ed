package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fastship/backend/internal/apperr"
	"github.com/fastship/backend/internal/services"
	"github.com/fastship/backend/types"
)

// ShipmentHandler provides the shipment workflow endpoints. All of
// them require authentication.
type ShipmentHandler struct {
	shipmentService *services.ShipmentService
	userService     *services.UserService
}

// NewShipmentHandler constructs a ShipmentHandler.
func NewShipmentHandler(shipmentService *services.ShipmentService, userService *services.UserService) *ShipmentHandler {
	return &ShipmentHandler{shipmentService: shipmentService, userService: userService}
}

// ShipmentRouter registers shipment routes on the given router.
func ShipmentRouter(r chi.Router, handler *ShipmentHandler, guard *Guard) {
	r.Use(guard.Require)
	r.Get("/", handler.List)
	r.Get("/my", handler.ListMine)
	r.Get("/{shipmentID}", handler.Get)
	r.Post("/", handler.Create)
	r.Patch("/{shipmentID}/status", handler.SetApprovalStatus)
	r.Delete("/{shipmentID}", handler.Delete)
}

type CreateShipmentRequest struct {
	Product           string               `json:"product"`
	Progress          types.ProgressStatus `json:"progress"`
	EstimatedDelivery *time.Time           `json:"estimated_delivery"`
	BuyerUsername     string               `json:"buyer_username"`
}

type ApprovalStatusRequest struct {
	ApprovalStatus types.ApprovalStatus `json:"approval_status"`
}

// List returns every shipment.
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	shipments, err := h.shipmentService.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipments)
}

// ListMine returns the shipments the caller participates in.
func (h *ShipmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	shipments, err := h.shipmentService.ListByUser(r.Context(), claims.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if shipments == nil {
		shipments = []types.Shipment{}
	}
	writeJSON(w, http.StatusOK, shipments)
}

// Get returns one shipment by id.
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	shipment, err := h.shipmentService.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

// Create registers a new pending shipment sold by the caller. A
// caller buying from themselves is rejected here, before the workflow
// runs.
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req CreateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	req.Product = strings.TrimSpace(req.Product)
	req.BuyerUsername = strings.TrimSpace(req.BuyerUsername)
	if req.Product == "" || req.BuyerUsername == "" {
		writeBadRequest(w, "missing required fields")
		return
	}

	if req.BuyerUsername == claims.User.Username {
		writeError(w, apperr.New(apperr.CodeSelfPurchase, "You cannot purchase your own shipment"))
		return
	}

	seller, err := h.userService.GetByID(r.Context(), claims.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	shipment, err := h.shipmentService.Create(r.Context(), seller, services.CreateShipmentInput{
		Product:           req.Product,
		Progress:          req.Progress,
		EstimatedDelivery: req.EstimatedDelivery,
		BuyerUsername:     req.BuyerUsername,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shipment)
}

// SetApprovalStatus moves a shipment to the requested approval
// status. Any authenticated caller may do this for any shipment.
func (h *ShipmentHandler) SetApprovalStatus(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req ApprovalStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	shipment, err := h.shipmentService.SetApprovalStatus(r.Context(), id, req.ApprovalStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

// Delete removes a shipment.
func (h *ShipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shipmentID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.shipmentService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func shipmentID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "shipmentID"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.CodeShipmentNotFound, "Shipment does not exist")
	}
	return id, nil
}
