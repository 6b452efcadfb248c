package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ai-rumble/Cerveau/games/guess"
	"github.com/ai-rumble/Cerveau/games/nim"
	"github.com/ai-rumble/Cerveau/internal/game"
	"github.com/ai-rumble/Cerveau/internal/gamelog"
	"github.com/ai-rumble/Cerveau/internal/lobby"
	"github.com/ai-rumble/Cerveau/internal/server"
	"github.com/ai-rumble/Cerveau/internal/version"
	"github.com/ai-rumble/Cerveau/pkg/logger"
)

func init() {
	// .env удобен для разработки; в проде переменные приходят из окружения.
	_ = godotenv.Load()
	logger.Init()
}

func main() {
	// 1. Конфигурация
	var port string
	var gamelogDir string
	flag.StringVar(&port, "port", envOr("CERVEAU_PORT", "3000"), "HTTP/websocket port")
	flag.StringVar(&gamelogDir, "gamelogs", envOr("CERVEAU_GAMELOG_DIR", "gamelogs"), "Directory for finished game logs")
	flag.Parse()

	logger.Log.Info("Starting Cerveau...")
	logger.Log.Info(version.String())

	// 2. Каталог игр. Модули правил регистрируются здесь и загружаются
	// лениво - при первом клиенте, запросившем игру.
	catalog := game.NewCatalog()
	nim.Register(catalog)
	guess.Register(catalog)

	// 3. Лобби и HTTP сервер
	lby := lobby.New(catalog, gamelog.NewLogger(gamelogDir))
	go lby.Run()

	srv := server.New(lby, port)
	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("Server start error:", err)
		}
	}()

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Log.Info("Shutting down...")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
