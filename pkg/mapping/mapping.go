// Package mapping converts between domain models and API response models.
package mapping

import (
	"github.com/skyvale/cloudpoints/pkg/api"
	"github.com/skyvale/cloudpoints/pkg/models"
)

// ToApiUser converts an account profile to the API user model.
func ToApiUser(profile *models.AccountProfile) *api.User {
	return &api.User{
		UserID:    profile.AccountID,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
		Points:    profile.Points,
	}
}

// ToApiPurchase converts a purchase receipt to the API purchase model.
func ToApiPurchase(receipt *models.Receipt) *api.Purchase {
	return &api.Purchase{
		PurchaseID:      receipt.ID,
		Item:            receipt.ItemName,
		Price:           receipt.Price,
		RemainingPoints: receipt.RemainingBalance,
		CommandExecuted: receipt.Command,
	}
}

// ToApiItem converts a catalog item to the API item model.
func ToApiItem(item *models.Item) *api.Item {
	return &api.Item{
		ItemID:    item.ID,
		ItemName:  item.Name,
		ItemPrice: item.Price,
		ItemIcon:  item.IconURL,
	}
}

// ToApiItemList converts the catalog listing to the API list model.
func ToApiItemList(items []models.Item) *api.ItemList {
	apiItems := make([]api.Item, len(items))
	for i := range items {
		apiItems[i] = *ToApiItem(&items[i])
	}
	return &api.ItemList{
		Items:      apiItems,
		TotalItems: len(apiItems),
	}
}
