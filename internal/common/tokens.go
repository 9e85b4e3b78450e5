package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"token-exchange-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type TokenConfig struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Price  string `yaml:"price"`
}

type TokensConfig struct {
	Tokens []TokenConfig `yaml:"tokens"`
}

var defaultCatalog = []TokenConfig{
	{Symbol: "TET", Name: "Texhet", Price: "10.0"},
	{Symbol: "GLL", Name: "Gallium", Price: "5.5"},
	{Symbol: "GGC", Name: "GigaCoin", Price: "100.0"},
	{Symbol: "LKY", Name: "LOWKEY", Price: "0.5"},
	{Symbol: "TSK", Name: "Tasket", Price: "12.0"},
	{Symbol: "MKY", Name: "Milkyy", Price: "25.0"},
	{Symbol: "HOA", Name: "Hainoka", Price: "8.0"},
	{Symbol: "ZDR", Name: "Zendora", Price: "1.2"},
	{Symbol: "FLX", Name: "Flux", Price: "45.0"},
	{Symbol: "VRT", Name: "Vortex", Price: "150.0"},
	{Symbol: "CRM", Name: "Crimson", Price: "7.0"},
	{Symbol: "AER", Name: "Aether", Price: "90.0"},
	{Symbol: "PLS", Name: "Pulse", Price: "3.3"},
	{Symbol: "ION", Name: "Ion", Price: "18.0"},
	{Symbol: "NVX", Name: "NovaX", Price: "60.0"},
}

// DefaultCatalog returns the built-in launch catalog
func DefaultCatalog() []models.Token {
	tokens, err := toTokens(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in token catalog: %v", err))
	}
	return tokens
}

// LoadTokenCatalog reads tokensFile, or returns the built-in catalog when it is empty
func LoadTokenCatalog(tokensFile string) ([]models.Token, error) {
	if tokensFile == "" {
		return DefaultCatalog(), nil
	}

	var tokensPath string
	if filepath.IsAbs(tokensFile) {
		tokensPath = tokensFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		tokensPath = filepath.Join(wd, tokensFile)
	}

	data, err := os.ReadFile(tokensPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", tokensFile, err)
	}

	var config TokensConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", tokensFile, err)
	}
	if len(config.Tokens) == 0 {
		return nil, fmt.Errorf("%s defines no tokens", tokensFile)
	}

	return toTokens(config.Tokens)
}

func toTokens(configs []TokenConfig) ([]models.Token, error) {
	seen := make(map[string]bool, len(configs))
	tokens := make([]models.Token, 0, len(configs))

	for i, tc := range configs {
		symbol := strings.ToUpper(strings.TrimSpace(tc.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("token at index %d missing symbol", i)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("duplicate token symbol %s", symbol)
		}
		seen[symbol] = true

		name := strings.TrimSpace(tc.Name)
		if name == "" {
			name = symbol
		}

		price, err := decimal.NewFromString(strings.TrimSpace(tc.Price))
		if err != nil {
			return nil, fmt.Errorf("token %s has invalid price '%s': %w", symbol, tc.Price, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("token %s price must be positive", symbol)
		}

		tokens = append(tokens, models.Token{
			Symbol:        symbol,
			Name:          name,
			Price:         price,
			BasePrice:     price,
			SchemaVersion: models.TokenSchemaVersion,
		})
	}

	return tokens, nil
}
