package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skyvale/cloudpoints/pkg/api"
	"github.com/skyvale/cloudpoints/pkg/catalog"
	"github.com/skyvale/cloudpoints/pkg/directory"
	"github.com/skyvale/cloudpoints/pkg/ledger"
	"github.com/skyvale/cloudpoints/pkg/mapping"
	"github.com/skyvale/cloudpoints/pkg/otp"
	"github.com/skyvale/cloudpoints/pkg/panel"
	"github.com/skyvale/cloudpoints/pkg/shop"
)

// otpExpirySeconds is surfaced to clients on successful OTP issuance.
const otpExpirySeconds = 300

// ApiHandler implements the api.ServerInterface.
// It holds the application's dependencies: the shop service and the catalog.
type ApiHandler struct {
	Shop    shop.Shop
	Catalog *catalog.Catalog

	// Health flags, fixed at startup.
	DiscordConfigured bool
	PanelConfigured   bool
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(shopService shop.Shop, cat *catalog.Catalog, discordConfigured, panelConfigured bool) *ApiHandler {
	return &ApiHandler{
		Shop:              shopService,
		Catalog:           cat,
		DiscordConfigured: discordConfigured,
		PanelConfigured:   panelConfigured,
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

// GetUserById handles profile + balance lookups.
func (h *ApiHandler) GetUserById(w http.ResponseWriter, r *http.Request, accountID string) {
	profile, err := h.Shop.Profile(r.Context(), accountID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiUser(profile))
}

// SendOTP handles credential issuance and DM delivery.
func (h *ApiHandler) SendOTP(w http.ResponseWriter, r *http.Request, accountID string) {
	if _, err := h.Shop.IssueOTP(r.Context(), accountID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &api.OTPIssued{
		Message:   "OTP sent successfully",
		ExpiresIn: otpExpirySeconds,
	})
}

// PurchaseItem handles the purchase transaction.
func (h *ApiHandler) PurchaseItem(w http.ResponseWriter, r *http.Request, accountID, code, itemID, ingameName string) {
	receipt, err := h.Shop.Purchase(r.Context(), accountID, code, itemID, ingameName)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiPurchase(receipt))
}

// GetItemInfo handles single-item catalog lookups.
func (h *ApiHandler) GetItemInfo(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := h.Catalog.Get(itemID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mapping.ToApiItem(item))
}

// ListItems handles the full catalog listing.
func (h *ApiHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, mapping.ToApiItemList(h.Catalog.List()))
}

// GetHealth reports liveness and config presence.
func (h *ApiHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	active, err := h.Shop.ActiveCredentials(r.Context())
	if err != nil {
		slog.Warn("failed to count active credentials for health check", "error", err)
		active = 0
	}
	respondJSON(w, http.StatusOK, &api.Health{
		Status:            "healthy",
		DiscordConfigured: h.DiscordConfigured,
		PanelConfigured:   h.PanelConfigured,
		ActiveOTPs:        active,
	})
}

// respondError maps domain errors onto the REST error taxonomy.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shop.ErrInvalidInput):
		respondErrorJSON(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, otp.ErrNotFound):
		respondErrorJSON(w, http.StatusBadRequest, "No active OTP found")
	case errors.Is(err, otp.ErrExpired):
		respondErrorJSON(w, http.StatusBadRequest, "OTP expired")
	case errors.Is(err, otp.ErrConsumed):
		respondErrorJSON(w, http.StatusBadRequest, "OTP already used")
	case errors.Is(err, otp.ErrMismatch):
		respondErrorJSON(w, http.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		respondErrorJSON(w, http.StatusBadRequest, "Insufficient cloud points")
	case errors.Is(err, catalog.ErrItemNotFound):
		respondErrorJSON(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, directory.ErrNotFound):
		respondErrorJSON(w, http.StatusNotFound, "User not found")
	case errors.Is(err, shop.ErrDeliveryBlocked):
		respondErrorJSON(w, http.StatusForbidden, "Unable to send DM to user")
	case errors.Is(err, panel.ErrAmbiguous):
		// Distinguished from definite failure: the command may have executed
		// and the spend is held pending manual reconciliation.
		respondErrorJSON(w, http.StatusBadGateway, "Item delivery unconfirmed; your points are held pending review")
	case errors.Is(err, panel.ErrRejected):
		respondErrorJSON(w, http.StatusInternalServerError, "Failed to execute item command")
	default:
		slog.Error("request failed", "error", err)
		respondErrorJSON(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func respondErrorJSON(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &api.Error{Error: message})
}
