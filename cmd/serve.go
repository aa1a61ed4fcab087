package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Harish-Uta17/portfolio/internal/config"
	"github.com/Harish-Uta17/portfolio/internal/contact"
	"github.com/Harish-Uta17/portfolio/internal/content"
	"github.com/Harish-Uta17/portfolio/internal/kv"
	"github.com/Harish-Uta17/portfolio/internal/profileimage"
	"github.com/Harish-Uta17/portfolio/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.GinMode != "" {
			gin.SetMode(cfg.GinMode)
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		portfolio, err := content.Default()
		if err != nil {
			return fmt.Errorf("loading content: %w", err)
		}

		var mailer *contact.Mailer
		if cfg.MailConfigured() {
			mailer = &contact.Mailer{
				Host:   cfg.SMTPHost,
				Port:   cfg.SMTPPort,
				User:   cfg.SMTPUser,
				Pass:   cfg.SMTPPass,
				To:     cfg.ContactTo,
				Logger: slog.Default(),
			}
		} else {
			slog.Warn("SMTP credentials not set, contact form disabled")
		}

		srv, err := web.New(web.Options{
			Addr:            ":" + strconv.Itoa(cfg.Port),
			Content:         portfolio,
			Store:           store,
			Mailer:          mailer,
			DefaultImageURL: cfg.DefaultImageURL,
			ImageLoader:     profileimage.NewImageLoader(cfg.ImageCheckTimeout),
			MaxUploadBytes:  cfg.MaxUploadBytes,
			AdminUser:       cfg.AdminUser,
			AdminPassword:   cfg.AdminPassword,
			Logger:          slog.Default(),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func openStore(cfg *config.Config) (*kv.SQLite, error) {
	store, err := kv.Open(cfg.DatabasePath(), kv.WithMaxValueBytes(cfg.MaxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return store, nil
}
