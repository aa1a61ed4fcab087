package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Harish-Uta17/portfolio/internal/config"
	"github.com/Harish-Uta17/portfolio/internal/content"
	"github.com/Harish-Uta17/portfolio/internal/kv"
	"github.com/Harish-Uta17/portfolio/internal/profileimage"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Inspect or replace the saved profile picture",
}

var imageSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Save a local file as the profile picture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening image: %w", err)
		}
		defer f.Close()

		images, err := newImageStore(cfg, store)
		if err != nil {
			return err
		}
		if err := images.SetImage(cmd.Context(), f); err != nil {
			return err
		}
		ct, data, _ := images.Image()
		fmt.Printf("Saved %s (%s, %s) to %s\n", args[0], ct, humanize.Bytes(uint64(len(data))), store.Path())
		return nil
	},
}

var imageShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which profile picture the site would display",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		images, err := newImageStore(cfg, store)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := images.Initialize(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		loadErr := verifyNow(ctx, images)

		d := images.Display()
		if d.Kind == profileimage.KindPlaceholder {
			fmt.Printf("Placeholder: %s\n", d.Initials)
			if loadErr != nil {
				fmt.Printf("  reason: %v\n", loadErr)
			}
			return nil
		}
		if ct, data, ok := images.Image(); ok {
			fmt.Printf("Local override: %s, %s\n", ct, humanize.Bytes(uint64(len(data))))
		} else {
			fmt.Printf("Default image: %s\n", d.Source)
		}
		fmt.Printf("  status: %s\n", d.Status)
		return nil
	},
}

func init() {
	imageCmd.AddCommand(imageSetCmd, imageShowCmd)
	rootCmd.AddCommand(imageCmd)
}

func newImageStore(cfg *config.Config, store *kv.SQLite) (*profileimage.Store, error) {
	portfolio, err := content.Default()
	if err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}
	return profileimage.New(store, profileimage.Options{
		DefaultURL: cfg.DefaultImageURL,
		Initials:   portfolio.Profile.Initials,
		Loader:     profileimage.NewImageLoader(cfg.ImageCheckTimeout),
		MaxBytes:   cfg.MaxUploadBytes,
	}), nil
}

// verifyNow checks the active source and waits for the result.
func verifyNow(ctx context.Context, images *profileimage.Store) error {
	source := images.Source()
	if source == "" {
		return errors.New("no image source")
	}
	done := make(chan error, 1)
	images.VerifyLoadable(ctx, source, func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
