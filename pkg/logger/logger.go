package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего приложения.
// Рабочий сразу; Init донастраивает его из окружения.
var Log = logrus.New()

// Init настраивает глобальный логгер.
// Эта функция должна быть вызвана один раз при старте приложения в main.go.
func Init() {
	// 1. Уровень логирования из переменной окружения.
	// По умолчанию - "info". Для отладки протокола можно выставить "debug".
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	// 2. Форматтер.
	// "json" - для продакшена и сбора логов.
	// "text" - для удобной разработки.
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if logFormat == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	Log.SetOutput(os.Stdout)
}

// ForSession возвращает логгер с контекстом игровой сессии.
// Воркеры и лобби добавляют к нему свои поля через WithField.
func ForSession(gameName, session string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"game":    gameName,
		"session": session,
	})
}
