package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
)

// LoadWallets reads one address per line. Blank lines and # comments are ignored,
// malformed addresses are skipped and duplicates are dropped case-insensitively.
func LoadWallets(path string, logger port.Logger) ([]entity.Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet file %s: %w", path, err)
	}
	defer file.Close()

	var wallets []entity.Wallet
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !entity.IsAddress(line) {
			logger.Warn("Skipping invalid wallet address", "file", path, "line_number", lineNum, "address", line)
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		wallets = append(wallets, entity.Wallet{Address: line})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet file %s: %w", path, err)
	}
	return wallets, nil
}
