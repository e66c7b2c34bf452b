package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"kitchen-ledger/pkg/models"
)

// Catalog is the read-only menu and ingredient lookup. Editing the catalog
// is a separate tool's concern; the server only loads it at startup and
// answers getMenu / getIngredients requests from it.
type Catalog struct {
	items       []models.MenuItem
	ingredients []models.Ingredient
	itemsByID   map[string]models.MenuItem
}

// Load reads the menu and ingredient files and validates every entry.
func Load(menuPath, ingredientsPath string, requiredLocales []string) (*Catalog, error) {
	var items []models.MenuItem
	if err := readJSONFile(menuPath, &items); err != nil {
		return nil, fmt.Errorf("cannot load menu: %w", err)
	}

	var ingredients []models.Ingredient
	if err := readJSONFile(ingredientsPath, &ingredients); err != nil {
		return nil, fmt.Errorf("cannot load ingredients: %w", err)
	}

	c := &Catalog{
		items:       items,
		ingredients: ingredients,
		itemsByID:   make(map[string]models.MenuItem, len(items)),
	}

	for i, item := range items {
		if err := validateItem(item, requiredLocales); err != nil {
			return nil, fmt.Errorf("menu item %d: %w", i+1, err)
		}
		if _, dup := c.itemsByID[item.ID]; dup {
			return nil, fmt.Errorf("menu item %d: duplicate id %q", i+1, item.ID)
		}
		c.itemsByID[item.ID] = item
	}

	for i, ing := range ingredients {
		if err := validateIngredient(ing, requiredLocales); err != nil {
			return nil, fmt.Errorf("ingredient %d: %w", i+1, err)
		}
	}

	return c, nil
}

func (c *Catalog) Items() []models.MenuItem {
	return c.items
}

func (c *Catalog) Ingredients() []models.Ingredient {
	return c.ingredients
}

func (c *Catalog) ItemByID(id string) (models.MenuItem, bool) {
	item, ok := c.itemsByID[id]
	return item, ok
}

// DefaultIngredients returns the catalog recipe for an item, or nil when
// the item is unknown (the snapshot then shows an empty recipe).
func (c *Catalog) DefaultIngredients(id string) []string {
	item, ok := c.itemsByID[id]
	if !ok {
		return nil
	}
	return item.Ingredients
}

func validateItem(item models.MenuItem, requiredLocales []string) error {
	if item.ID == "" {
		return fmt.Errorf("id is required")
	}
	if item.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	if err := validateName(item.Name, requiredLocales); err != nil {
		return err
	}
	if item.Quantity.Amount < 0 {
		return fmt.Errorf("quantity amount cannot be negative")
	}
	if item.SupplementPrice < 0 {
		return fmt.Errorf("supplement price cannot be negative")
	}
	return nil
}

func validateIngredient(ing models.Ingredient, requiredLocales []string) error {
	if ing.ID == "" {
		return fmt.Errorf("id is required")
	}
	return validateName(ing.Name, requiredLocales)
}

func validateName(name models.LocalizedName, requiredLocales []string) error {
	if len(name) == 0 {
		return fmt.Errorf("name is required")
	}
	for _, locale := range requiredLocales {
		if name[locale] == "" {
			return fmt.Errorf("name is missing the %q locale", locale)
		}
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
