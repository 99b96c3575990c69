// Package catalog holds the static shop item catalog. It is loaded once at
// startup and read-only afterwards.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/skyvale/cloudpoints/pkg/models"
)

// ErrItemNotFound is returned when an item ID is not in the catalog.
var ErrItemNotFound = errors.New("item not found")

// PlayerPlaceholder is the single token substituted into delivery commands.
const PlayerPlaceholder = "{ingame-name}"

// Catalog is an immutable item-id -> item mapping that preserves the
// definition order of its source.
type Catalog struct {
	items map[string]models.Item
	order []string
}

// rawItem mirrors the items.json schema of the original deployment.
type rawItem struct {
	Name    string     `json:"item-name"`
	Price   flexNumber `json:"item-price"`
	Command string     `json:"item-cmd"`
	Icon    string     `json:"item-icon"`
}

// flexNumber accepts a price given as either a JSON number or a quoted
// numeric string; deployed items files use both forms.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*n = flexNumber(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return err
	}
	*n = flexNumber(asNumber.String())
	return nil
}

// Load reads the catalog from an items.json file. A missing or malformed file
// yields an empty catalog, never an error that would stop the service; items
// failing validation are dropped with a warning.
func Load(path string) *Catalog {
	file, err := os.Open(path)
	if err != nil {
		slog.Warn("items file not readable, starting with empty catalog", "path", path, "error", err)
		return &Catalog{items: make(map[string]models.Item)}
	}
	defer file.Close()

	catalog, err := Parse(file)
	if err != nil {
		slog.Warn("items file malformed, starting with empty catalog", "path", path, "error", err)
		return &Catalog{items: make(map[string]models.Item)}
	}
	return catalog
}

// Parse decodes an items.json document, preserving definition order.
func Parse(r io.Reader) (*Catalog, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	// Walk tokens by hand: encoding/json maps do not preserve key order,
	// and List must reflect the source's definition order.
	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read items document: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("items document must be a JSON object, got %v", token)
	}

	catalog := &Catalog{items: make(map[string]models.Item)}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read item key: %w", err)
		}
		itemID := keyToken.(string)

		var raw rawItem
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode item %q: %w", itemID, err)
		}

		item, err := validate(itemID, &raw)
		if err != nil {
			slog.Warn("dropping invalid catalog item", "item_id", itemID, "error", err)
			continue
		}
		catalog.items[itemID] = *item
		catalog.order = append(catalog.order, itemID)
	}

	return catalog, nil
}

// Default returns the built-in fallback catalog used when no items file is configured.
func Default() *Catalog {
	catalog := &Catalog{items: make(map[string]models.Item)}
	for _, item := range []models.Item{
		{ID: "1", Name: "Golden Apple", Price: 100, CommandTemplate: "give {ingame-name} golden_apple", IconURL: "https://static.wikia.nocookie.net/minecraft_gamepedia/images/5/54/Golden_Apple_JE2_BE2.png"},
		{ID: "2", Name: "Diamond Sword", Price: 250, CommandTemplate: "give {ingame-name} diamond_sword", IconURL: "https://static.wikia.nocookie.net/minecraft_gamepedia/images/4/44/Diamond_Sword_JE3_BE3.png"},
		{ID: "3", Name: "Netherite Ingot", Price: 500, CommandTemplate: "give {ingame-name} netherite_ingot", IconURL: "https://static.wikia.nocookie.net/minecraft_gamepedia/images/4/41/Netherite_Ingot_JE1_BE1.png"},
	} {
		catalog.items[item.ID] = item
		catalog.order = append(catalog.order, item.ID)
	}
	return catalog
}

// Get returns the item with the given ID.
func (c *Catalog) Get(itemID string) (*models.Item, error) {
	item, ok := c.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", itemID, ErrItemNotFound)
	}
	return &item, nil
}

// List returns all items in definition order.
func (c *Catalog) List() []models.Item {
	items := make([]models.Item, 0, len(c.order))
	for _, itemID := range c.order {
		items = append(items, c.items[itemID])
	}
	return items
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.order)
}

func validate(itemID string, raw *rawItem) (*models.Item, error) {
	if raw.Name == "" {
		return nil, errors.New("missing item-name")
	}

	price, err := strconv.ParseInt(string(raw.Price), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("item-price %q is not an integer", string(raw.Price))
	}
	if price <= 0 {
		return nil, fmt.Errorf("item-price %d is not positive", price)
	}

	if !strings.Contains(raw.Command, PlayerPlaceholder) {
		return nil, fmt.Errorf("item-cmd missing %s placeholder", PlayerPlaceholder)
	}

	return &models.Item{
		ID:              itemID,
		Name:            raw.Name,
		Price:           price,
		CommandTemplate: raw.Command,
		IconURL:         raw.Icon,
	}, nil
}
