package tokenloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	networkdefinition "wallet_tracker/internal/infrastructure/network/definition"
	"wallet_tracker/internal/pkg/utils"
)

// LoadTokens reads <dir>/<identifier>.json for every network in defs and validates each file
// against its network. Networks without a file are absent from the result. A missing
// directory yields an empty result; a malformed file is an error.
func LoadTokens(dir string, defs []entity.NetworkDefinition, logger port.Logger) (map[string][]entity.TokenInfo, error) {
	tokens := make(map[string][]entity.TokenInfo)
	if dir == "" {
		return tokens, nil
	}

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("Token directory not found, using built-in registries", "directory", dir)
			return tokens, nil
		}
		return nil, fmt.Errorf("failed to stat token directory %s: %w", dir, err)
	}

	for _, def := range defs {
		path := filepath.Join(dir, def.Identifier+".json")
		list, err := utils.LoadTokensFromJSON(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("No token override file for network", "network", def.Identifier, "path", path)
				continue
			}
			return nil, fmt.Errorf("failed to load tokens for %s: %w", def.Identifier, err)
		}

		for i := range list {
			if list[i].ChainID == 0 {
				list[i].ChainID = def.ChainID
			}
		}
		if err := networkdefinition.ValidateRegistry(def, list); err != nil {
			return nil, fmt.Errorf("invalid token file %s: %w", path, err)
		}

		tokens[def.Identifier] = list
		logger.Info("Loaded token registry override", "network", def.Identifier, "path", path, "count", len(list))
	}
	return tokens, nil
}
