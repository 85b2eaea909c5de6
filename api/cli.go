package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// cli holds the state shared by every subcommand once flags are parsed.
type cli struct {
	cfg        config
	configPath string
	logger     *logrus.Entry
}

func newRootCmd() *cobra.Command {
	c := &cli{cfg: defaultConfig()}

	root := &cobra.Command{
		Use:           "todo",
		Short:         "Personal task manager with a web UI and a JSON API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd.Flags(), &c.cfg, c.configPath); err != nil {
				return err
			}
			c.logger = newLogger(c.cfg.LogLevel, nil)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to a TOML config file")
	bindFlags(root.PersistentFlags(), &c.cfg)

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.userCmd())
	root.AddCommand(versionCmd())
	return root
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStorage()
			if err != nil {
				return err
			}
			defer store.close()
			if err := store.migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			c.logger.Info("database schema is up to date")
			return nil
		},
	}
}

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var name, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.newApp()
			if err != nil {
				return err
			}
			defer app.storage.close()

			req := registerRequest{Name: name, Email: email, Password: password, PasswordConfirmation: password}
			if err := req.validate(); err != nil {
				return err
			}
			u, err := app.register(cmd.Context(), req)
			if err != nil {
				return err
			}
			app.logger.WithField("user_id", u.ID).Info("user created")
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s>\n", u.ID, u.Email)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Display name")
	create.Flags().StringVar(&email, "email", "", "Email address")
	create.Flags().StringVar(&password, "password", "", "Password (8-72 characters)")
	create.MarkFlagRequired("email")
	create.MarkFlagRequired("password")

	var deleteEmail string
	remove := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user account with its tasks and tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStorage()
			if err != nil {
				return err
			}
			defer store.close()

			u, err := store.getUserByEmail(cmd.Context(), deleteEmail)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("no user with email %s", deleteEmail)
			}
			if err := store.deleteUser(cmd.Context(), u); err != nil {
				return err
			}
			c.logger.WithField("user_id", u.ID).Info("user deleted")
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %d <%s>\n", u.ID, u.Email)
			return nil
		},
	}
	remove.Flags().StringVar(&deleteEmail, "email", "", "Email address")
	remove.MarkFlagRequired("email")

	cmd.AddCommand(create, remove)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func (c *cli) openStorage() (*storage, error) {
	db, err := openDB(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.logger.WithField("driver", c.cfg.DB.Driver).Info("established a connection with database")
	return newStorage(db), nil
}

func (c *cli) newApp() (*application, error) {
	store, err := c.openStorage()
	if err != nil {
		return nil, err
	}
	app, err := newApplication(c.cfg, c.logger, store)
	if err != nil {
		store.close()
		return nil, err
	}
	return app, nil
}

func (c *cli) serve(ctx context.Context) error {
	if c.cfg.JWT.Secret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		c.cfg.JWT.Secret = hex.EncodeToString(secret)
		c.logger.Warn("no JWT secret configured, generated one; sessions will not survive a restart")
	}

	app, err := c.newApp()
	if err != nil {
		return err
	}
	if c.cfg.DB.AutoMigrate {
		if err := app.storage.migrate(ctx); err != nil {
			app.storage.close()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", c.cfg.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     newServerErrorLog(app.logger),
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.WithFields(logrus.Fields{"env": c.cfg.Env, "port": c.cfg.Port}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			app.logger.Info("shutting down server")
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			return app.storage.close()
		},
	})

	select {
	case err := <-serverErr:
		app.storage.close()
		return err
	case code := <-wait:
		app.logger.WithField("exit_code", code).Info("stopped server")
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		return nil
	}
}
