// Package api defines the REST surface consumed by the web storefront:
// the JSON response models and the route table binding them to a
// ServerInterface implementation.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// User is the profile + balance response.
type User struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Points    int64  `json:"points"`
}

// OTPIssued acknowledges a delivered one-time code.
type OTPIssued struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

// Purchase is the terminal success response of the purchase pipeline. The
// executed command is included for audit; it is not a secret.
type Purchase struct {
	PurchaseID      string `json:"purchase_id"`
	Item            string `json:"item"`
	Price           int64  `json:"price"`
	RemainingPoints int64  `json:"remaining_points"`
	CommandExecuted string `json:"command_executed"`
}

// Item is a catalog entry. The delivery command template is deliberately
// omitted from list/info responses.
type Item struct {
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	ItemPrice int64  `json:"item_price"`
	ItemIcon  string `json:"item_icon"`
}

// ItemList wraps the full catalog.
type ItemList struct {
	Items      []Item `json:"items"`
	TotalItems int    `json:"total_items"`
}

// Health reports liveness and config-presence flags.
type Health struct {
	Status            string `json:"status"`
	DiscordConfigured bool   `json:"discord_configured"`
	PanelConfigured   bool   `json:"panel_configured"`
	ActiveOTPs        int    `json:"active_otps"`
}

// Error is the uniform error payload.
type Error struct {
	Error string `json:"error"`
}

// ServerInterface is implemented by the handlers package.
type ServerInterface interface {
	// GetUserById returns profile + balance. (GET /api/user/{accountId})
	GetUserById(w http.ResponseWriter, r *http.Request, accountID string)

	// SendOTP issues and DMs a credential. (POST /api/shop/{accountId}/send-otp-dm)
	SendOTP(w http.ResponseWriter, r *http.Request, accountID string)

	// PurchaseItem executes a purchase. (POST /api/shop/{accountId}/{code}/item/{itemId}/{ingameName})
	PurchaseItem(w http.ResponseWriter, r *http.Request, accountID, code, itemID, ingameName string)

	// GetItemInfo returns one catalog item. (GET /api/item-info/{itemId})
	GetItemInfo(w http.ResponseWriter, r *http.Request, itemID string)

	// ListItems returns the full catalog. (GET /api/shop/items)
	ListItems(w http.ResponseWriter, r *http.Request)

	// GetHealth reports liveness. (GET /api/health)
	GetHealth(w http.ResponseWriter, r *http.Request)
}

// HandlerFromMux mounts the API routes for si on the given chi router.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	r.Get("/api/user/{accountId}", func(w http.ResponseWriter, req *http.Request) {
		si.GetUserById(w, req, chi.URLParam(req, "accountId"))
	})
	r.Post("/api/shop/{accountId}/send-otp-dm", func(w http.ResponseWriter, req *http.Request) {
		si.SendOTP(w, req, chi.URLParam(req, "accountId"))
	})
	// Registered before the purchase route below so "items" is never taken
	// for an account ID.
	r.Get("/api/shop/items", si.ListItems)
	r.Post("/api/shop/{accountId}/{code}/item/{itemId}/{ingameName}", func(w http.ResponseWriter, req *http.Request) {
		si.PurchaseItem(w, req,
			chi.URLParam(req, "accountId"),
			chi.URLParam(req, "code"),
			chi.URLParam(req, "itemId"),
			chi.URLParam(req, "ingameName"),
		)
	})
	r.Get("/api/item-info/{itemId}", func(w http.ResponseWriter, req *http.Request) {
		si.GetItemInfo(w, req, chi.URLParam(req, "itemId"))
	})
	r.Get("/api/health", si.GetHealth)
	return r
}
