package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const serviceName = "todo-web-api"

// newLogger builds the JSON logger shared by every component. Unknown levels
// fall back to info.
func newLogger(level string, out io.Writer) *logrus.Entry {
	logger := logrus.New()
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger.WithField("service", serviceName)
}

// newServerErrorLog routes net/http server errors through logger.
func newServerErrorLog(logger *logrus.Entry) *log.Logger {
	return log.New(logger.WriterLevel(logrus.ErrorLevel), "", 0)
}
