package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"mailquill/config"
	"mailquill/llm"
	"mailquill/server"
	"mailquill/storage"
	"mailquill/utils"
	"mailquill/workflow"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	utils.Log.Info("Initializing Mailquill...")

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	utils.Log.SetLevel(utils.ParseLogLevel(cfg.Log.Level))

	// Initialize i18n system
	if err := utils.InitI18n(); err != nil {
		utils.Log.Error("Failed to initialize i18n: %v", err)
		os.Exit(1)
	}

	db, err := storage.InitDB(cfg.Storage.DataDir)
	if err != nil {
		utils.Log.Error("Failed to open storage: %v", err)
		os.Exit(1)
	}
	clientStorage := storage.NewClientStateStorage(db)
	defer clientStorage.Close()

	if cfg.LLM.APIKey == "" {
		utils.Log.Warn("No completion API key configured; set %s. Generation requests will fail.", config.APIKeyEnv)
	}
	completer := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	registry := workflow.NewRegistry(clientStorage, cfg.History.MaxEntries, cfg.Session.IdleTimeout())
	defer registry.Close()

	secret := []byte(cfg.Security.JWTSecret)
	if len(secret) == 0 {
		// Identity cookies will not survive a restart
		utils.Log.Warn("security.jwt_secret is not set; using a random secret")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			utils.Log.Error("Failed to generate secret: %v", err)
			os.Exit(1)
		}
	}

	app := server.New(server.Deps{
		Config:     cfg,
		Completer:  completer,
		Registry:   registry,
		Generator:  workflow.NewGenerator(completer),
		Secret:     secret,
		RequestLog: true,
	})

	// Start server
	utils.Log.Info("Starting server on port %d (model %s)...", cfg.Server.Port, completer.Model())
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}
