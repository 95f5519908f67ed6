package businessselect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/dealbook-dev/dealbook/internal/models"
)

// ErrNoBusinesses is returned when the user belongs to no business.
var ErrNoBusinesses = errors.New("no businesses linked to this account")

// PromptFunc asks the user to pick one of businesses and returns its index.
type PromptFunc func(businesses []models.Business, current *models.Business) (int, error)

// ResolveBusiness determines which business to switch to:
// 1. If idOrName is provided, match it against IDs, then names
// 2. If there is only one business, use it
// 3. Otherwise, prompt the user to select one
func ResolveBusiness(businesses []models.Business, current *models.Business, idOrName string, prompt PromptFunc) (models.Business, error) {
	if len(businesses) == 0 {
		return models.Business{}, ErrNoBusinesses
	}

	// Priority 1: explicit argument
	if idOrName != "" {
		return GetBusinessByIDOrName(businesses, idOrName)
	}

	// Priority 2: nothing to choose from
	if len(businesses) == 1 {
		return businesses[0], nil
	}

	// Priority 3: ask
	if prompt == nil {
		prompt = PromptBusinessSelection
	}
	index, err := prompt(businesses, current)
	if err != nil {
		return models.Business{}, err
	}
	if index < 0 || index >= len(businesses) {
		return models.Business{}, fmt.Errorf("invalid selection %d", index)
	}
	return businesses[index], nil
}

// PromptBusinessSelection shows an interactive prompt for the user to select a business
func PromptBusinessSelection(businesses []models.Business, current *models.Business) (int, error) {
	type businessOption struct {
		Label string
	}

	options := make([]businessOption, len(businesses))
	cursor := 0
	for i, b := range businesses {
		label := fmt.Sprintf("%s (%s)", b.Name, b.ID)
		if current != nil && current.ID == b.ID {
			label += " *"
			cursor = i
		}
		options[i] = businessOption{Label: label}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a business",
		Items:     options,
		Templates: templates,
		Size:      10,
		CursorPos: cursor,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("business selection cancelled: %w", err)
	}
	return index, nil
}

// GetBusinessByIDOrName finds a business by ID or, failing that, by name
func GetBusinessByIDOrName(businesses []models.Business, idOrName string) (models.Business, error) {
	// First try by ID
	for _, b := range businesses {
		if b.ID == idOrName {
			return b, nil
		}
	}

	// Then try by name
	for _, b := range businesses {
		if strings.EqualFold(b.Name, idOrName) {
			return b, nil
		}
	}

	return models.Business{}, fmt.Errorf("business with ID or name '%s' not found", idOrName)
}
