package logger

import (
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
)

type Logger struct {
	App  waLog.Logger
	HTTP waLog.Logger
	Feed waLog.Logger
}

func New(level string) *Logger {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "INFO"
	}
	app := waLog.Stdout("App", level, true)
	return &Logger{
		App:  app,
		HTTP: app.Sub("HTTP"),
		Feed: app.Sub("Feed"),
	}
}

func InitForTests() *Logger {
	return &Logger{App: waLog.Stdout("Test", "DEBUG", false), HTTP: waLog.Noop, Feed: waLog.Noop}
}
