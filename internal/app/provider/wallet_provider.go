package provider

import (
	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
	"wallet_tracker/internal/infrastructure/walletloader"
)

type walletProviderImpl struct {
	walletFilePath string
	logger         port.Logger
}

// NewWalletProvider creates a WalletProvider reading the watchlist at filePath.
func NewWalletProvider(filePath string, logger port.Logger) port.WalletProvider {
	return &walletProviderImpl{walletFilePath: filePath, logger: logger}
}

// GetWallets loads wallet addresses from the configured file. No file means no wallets.
func (p *walletProviderImpl) GetWallets() ([]entity.Wallet, error) {
	if p.walletFilePath == "" {
		return []entity.Wallet{}, nil
	}
	p.logger.Debug("Loading wallets from file", "path", p.walletFilePath)
	wallets, err := walletloader.LoadWallets(p.walletFilePath, p.logger)
	if err != nil {
		p.logger.Error("Failed to load wallets", "path", p.walletFilePath, "error", err)
		return nil, err
	}
	p.logger.Info("Wallets loaded successfully", "count", len(wallets), "path", p.walletFilePath)
	return wallets, nil
}
