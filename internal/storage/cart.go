package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mealdash/appcore/internal/checkout"
)

// cartFile is the on-disk shape of the persisted selection.
type cartFile struct {
	Lines []checkout.CartLine `json:"lines"`
}

// LoadCart reads the persisted cart selection. A missing file is an empty
// cart, not an error; lines captured by older app versions may lack a
// restaurant id, which checkout resolution repairs later.
func LoadCart(path string) ([]checkout.CartLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	var f cartFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return f.Lines, nil
}

// SaveCart writes the cart selection with restrictive permissions.
func SaveCart(path string, lines []checkout.CartLine) error {
	data, err := json.MarshalIndent(cartFile{Lines: lines}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cart: %w", err)
	}
	return nil
}

// ClearCart removes the persisted selection. Safe when nothing is persisted.
func ClearCart(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
