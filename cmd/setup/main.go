/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"

	"token-exchange-go/internal/common"
	"token-exchange-go/internal/config"
	"token-exchange-go/internal/models"

	"go.uber.org/zap"
)

func printToken(token models.Token, isLast bool) {
	fmt.Printf("%s %-5s %-12s price: %12s  base: %12s  (schema v%d)\n",
		common.BoxPrefix(isLast),
		token.Symbol,
		token.Name,
		common.FormatAmount(token.Price),
		common.FormatAmount(token.BasePrice),
		token.SchemaVersion)
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		_, _ = common.InitializeLogger(false)
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Server.LogDevelopment)
	defer loggerCleanup()

	zap.L().Info("Starting setup",
		zap.String("database", cfg.Database.Path),
		zap.String("tokens_file", cfg.Market.TokensFile))

	// Opening the services creates the schema, migrates old token records and seeds
	// an empty catalog.
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	tokens := services.Exchange.GetTokens(ctx)

	common.PrintHeader("TOKEN CATALOG", common.DefaultWidth)
	for i, token := range tokens {
		printToken(token, i == len(tokens)-1)
	}
	common.PrintFooter(fmt.Sprintf("Setup complete: %d tokens available", len(tokens)), common.DefaultWidth)

	zap.L().Info("Setup completed", zap.Int("tokens", len(tokens)))
}
