package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemsJSON = `{
  "3": {"item-name": "Netherite Ingot", "item-price": "500", "item-cmd": "give {ingame-name} netherite_ingot", "item-icon": "https://example.com/netherite.png"},
  "1": {"item-name": "Golden Apple", "item-price": 100, "item-cmd": "give {ingame-name} golden_apple", "item-icon": "https://example.com/apple.png"},
  "2": {"item-name": "Diamond Sword", "item-price": "250", "item-cmd": "give {ingame-name} diamond_sword", "item-icon": "https://example.com/sword.png"}
}`

func TestParse(t *testing.T) {
	catalog, err := Parse(strings.NewReader(itemsJSON))
	require.NoError(t, err)
	require.Equal(t, 3, catalog.Len())

	item, err := catalog.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Golden Apple", item.Name)
	assert.Equal(t, int64(100), item.Price)
	assert.Equal(t, "give {ingame-name} golden_apple", item.CommandTemplate)
}

func TestListPreservesDefinitionOrder(t *testing.T) {
	catalog, err := Parse(strings.NewReader(itemsJSON))
	require.NoError(t, err)

	var ids []string
	for _, item := range catalog.List() {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"3", "1", "2"}, ids)
}

func TestParseDropsInvalidItems(t *testing.T) {
	document := `{
	  "1": {"item-name": "Golden Apple", "item-price": "100", "item-cmd": "give {ingame-name} golden_apple"},
	  "2": {"item-name": "No Price", "item-price": "free", "item-cmd": "give {ingame-name} thing"},
	  "3": {"item-name": "Zero Price", "item-price": "0", "item-cmd": "give {ingame-name} thing"},
	  "4": {"item-name": "No Placeholder", "item-price": "50", "item-cmd": "say hello"},
	  "5": {"item-price": "50", "item-cmd": "give {ingame-name} thing"}
	}`

	catalog, err := Parse(strings.NewReader(document))
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())

	_, err = catalog.Get("2")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse(strings.NewReader(`["not", "an", "object"]`))
	assert.Error(t, err)
}

func TestGetUnknownItem(t *testing.T) {
	catalog, err := Parse(strings.NewReader(itemsJSON))
	require.NoError(t, err)

	_, err = catalog.Get("999")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestLoad(t *testing.T) {
	t.Run("From File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "items.json")
		require.NoError(t, os.WriteFile(path, []byte(itemsJSON), 0o644))

		catalog := Load(path)
		assert.Equal(t, 3, catalog.Len())
	})

	t.Run("Missing File Yields Empty Catalog", func(t *testing.T) {
		catalog := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
		assert.Equal(t, 0, catalog.Len())
		assert.Empty(t, catalog.List())
	})

	t.Run("Malformed File Yields Empty Catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "items.json")
		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

		catalog := Load(path)
		assert.Equal(t, 0, catalog.Len())
	})
}

func TestDefaultCatalog(t *testing.T) {
	catalog := Default()
	require.Equal(t, 3, catalog.Len())

	item, err := catalog.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Golden Apple", item.Name)
	assert.Contains(t, item.CommandTemplate, PlayerPlaceholder)
}
