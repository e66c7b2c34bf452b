package syncserver

import (
	"errors"
	"fmt"

	"kitchen-ledger/pkg/models"
)

// Validator checks that an inbound message carries every field its action
// needs. A message that fails here is dropped whole; nothing is ever
// partially applied.
type Validator struct {
	requiredLocales []string
}

func NewValidator(requiredLocales []string) *Validator {
	return &Validator{requiredLocales: requiredLocales}
}

// NormalizeAction maps the legacy empty action to add.
func NormalizeAction(action string) string {
	if action == "" {
		return models.ActionAdd
	}
	return action
}

func (v *Validator) Validate(msg *models.InboundMessage) error {
	action := NormalizeAction(msg.Action)

	// Read-only requests carry no state and need no timestamp.
	switch action {
	case models.ActionGetState, models.ActionGetMenu, models.ActionGetIngredients:
		return nil
	}

	if msg.Timestamp == 0 {
		return errors.New("timestamp is required")
	}

	switch action {
	case models.ActionModify:
		if msg.OriginalTimestamp == 0 {
			return errors.New("originalTimestamp is required for modify")
		}
		if msg.Item != nil && msg.Item.Price <= 0 {
			return errors.New("item price must be positive")
		}
		return nil

	case models.ActionAdd, models.ActionRemove:
		if msg.Table <= 0 {
			return errors.New("table is required")
		}
		return v.validateItem(msg.Item)

	case models.ActionSetStatus:
		if msg.Table <= 0 {
			return errors.New("table is required")
		}
		if msg.LineTimestamp == 0 {
			return errors.New("lineTimestamp is required for setStatus")
		}
		if msg.Status != models.StatusPending && msg.Status != models.StatusFulfilled {
			return fmt.Errorf("status must be %q or %q", models.StatusPending, models.StatusFulfilled)
		}
		return nil

	case models.ActionCloseTable:
		if msg.Table <= 0 {
			return errors.New("table is required")
		}
		return nil

	case models.ActionSetPeopleCount:
		if msg.Table <= 0 {
			return errors.New("table is required")
		}
		if msg.Count < 0 {
			return errors.New("count cannot be negative")
		}
		return nil
	}

	return fmt.Errorf("unknown action %q", msg.Action)
}

func (v *Validator) validateItem(item *models.ItemSnapshot) error {
	if item == nil {
		return errors.New("item is required")
	}
	if item.ID == "" {
		return errors.New("item id is required")
	}
	if item.Price <= 0 {
		return errors.New("item price must be positive")
	}
	if len(item.Name) == 0 {
		return errors.New("item name is required")
	}
	for _, locale := range v.requiredLocales {
		if item.Name[locale] == "" {
			return fmt.Errorf("item name is missing the %q locale", locale)
		}
	}
	return nil
}
