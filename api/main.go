package main

import (
	"fmt"
	"html/template"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const version = "1.0.0"

type application struct {
	config     config
	logger     *logrus.Entry
	storage    *storage
	templates  map[string]*template.Template
	bcryptCost int
}

func newApplication(cfg config, logger *logrus.Entry, store *storage) (*application, error) {
	templates, err := newTemplateCache()
	if err != nil {
		return nil, err
	}
	return &application{
		config:     cfg,
		logger:     logger,
		storage:    store,
		templates:  templates,
		bcryptCost: bcrypt.DefaultCost,
	}, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
