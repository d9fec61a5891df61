package utils

import (
	"fmt"
	"os"

	"wallet_tracker/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadTokensFromJSON reads a JSON file with a list of tokens.
func LoadTokensFromJSON(filePath string) ([]entity.TokenInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var tokens []entity.TokenInfo
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode tokens from %s: %w", filePath, err)
	}
	return tokens, nil
}
