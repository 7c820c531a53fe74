package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger define a interface para logging estruturado.
// A aplicação (Handler, Service, Repository, Middleware) deve depender apenas desta interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error)
	Fatal(msg string, err error)
	// With retorna um Logger derivado que sempre inclui os campos informados.
	With(fields map[string]interface{}) Logger
}

// LogrusLogger é a implementação concreta da interface Logger sobre o logrus,
// com saída JSON estruturada.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger cria e retorna uma nova instância do Logger escrevendo em stdout.
// Esta função é chamada no main.go.
func NewLogger(level string) Logger {
	return NewLoggerWithOutput(level, os.Stdout)
}

// NewLoggerWithOutput permite redirecionar a saída (útil em testes).
func NewLoggerWithOutput(level string, out io.Writer) Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	base.SetLevel(parseLevel(level))

	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

// parseLevel converte o LOG_LEVEL da configuração; valores desconhecidos caem em info.
func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (l *LogrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, err error) {
	l.entry.WithError(err).Error(msg)
}

// Fatal registra o erro e encerra o processo (os.Exit(1) via logrus).
func (l *LogrusLogger) Fatal(msg string, err error) {
	l.entry.WithError(err).Fatal(msg)
}

func (l *LogrusLogger) With(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(fields)}
}
