package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nanobanana/internal/domain"
	"nanobanana/internal/intake"
	"nanobanana/internal/storage"
	"nanobanana/internal/theme"
	"nanobanana/internal/transform"
	"nanobanana/internal/workflow"
)

type rootOptions struct {
	apiURL  string
	timeout time.Duration
	theme   string
	verbose bool
}

func (o *rootOptions) logger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func (o *rootOptions) client(log *zerolog.Logger) *transform.Client {
	return transform.NewClient(transform.Options{BaseURL: o.apiURL, Timeout: o.timeout, Logger: log})
}

func (o *rootOptions) palette() palette {
	return newPalette(theme.Resolve(o.theme, theme.Default))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "stylize",
		Short:         "Transform photos into artistic styles with the Nano Banana backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", envOr("API_URL", transform.DefaultBaseURL), "transformation backend base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", transform.DefaultTimeout, "request timeout")
	cmd.PersistentFlags().StringVar(&opts.theme, "theme", envOr("THEME", theme.Default), "output palette ("+strings.Join(theme.Names(), ", ")+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests")

	cmd.AddCommand(newStylesCmd(opts), newHealthCmd(opts), newTransformCmd(opts))
	return cmd
}

func newStylesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the predefined styles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opts.palette()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, p.Title.Render("Transformation styles"))
			for _, s := range domain.Styles() {
				marker := "  "
				if s.Name == domain.DefaultStyle {
					marker = p.Marker.Render("● ")
				}
				fmt.Fprintf(out, "%s%s  %s\n", marker, p.Name.Render(s.Name), p.Desc.Render(s.Description))
			}
			return nil
		},
	}
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the transformation backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opts.palette()
			log := opts.logger(cmd.ErrOrStderr())
			client := opts.client(&log)
			ok, err := client.Health(cmd.Context())
			out := cmd.OutOrStdout()
			switch {
			case err != nil:
				fmt.Fprintln(out, p.Error.Render("✗ "+domain.UserMessage(err)))
				return err
			case !ok:
				fmt.Fprintln(out, p.Error.Render("✗ backend at "+client.BaseURL()+" is not healthy"))
				return errors.New("backend unhealthy")
			}
			fmt.Fprintln(out, p.Success.Render("✓ backend at "+client.BaseURL()+" is up"))
			return nil
		},
	}
}

func newTransformCmd(opts *rootOptions) *cobra.Command {
	var (
		style  string
		prompt string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "transform IMAGE",
		Short: "Transform one image and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opts.palette()
			log := opts.logger(cmd.ErrOrStderr())
			out := cmd.OutOrStdout()

			img, err := loadImage(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintln(out, p.Error.Render("✗ "+domain.UserMessage(err)))
				return err
			}

			ctrl := workflow.NewController(opts.client(&log), log)
			ctrl.Upload(img)
			if cmd.Flags().Changed("prompt") {
				if err := ctrl.SetMode(domain.ModeCustom); err != nil {
					return err
				}
				ctrl.SetPrompt(prompt)
			} else if err := ctrl.SelectStyle(style); err != nil {
				fmt.Fprintln(out, p.Error.Render("✗ "+domain.UserMessage(err)))
				return fmt.Errorf("%w: %q", err, style)
			}

			fmt.Fprintln(out, p.Subtle.Render("Creating your masterpiece..."))
			if err := ctrl.Submit(cmd.Context()); err != nil {
				fmt.Fprintln(out, p.Error.Render("✗ "+ctrl.Snapshot().Error))
				return err
			}

			result, err := ctrl.Download()
			if err != nil {
				return err
			}
			data, err := result.Bytes()
			if err != nil {
				return err
			}
			store, err := storage.NewFileStore(outDir)
			if err != nil {
				return err
			}
			key, err := store.Write(cmd.Context(), result.Filename(time.Now()), data)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, p.Success.Render("✓ "+result.Label()+" saved to "+filepath.Join(store.BasePath(), key)))
			if result.Message != "" {
				fmt.Fprintln(out, p.Desc.Render(result.Message))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", domain.DefaultStyle, "predefined style name")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "custom prompt instead of a predefined style")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the transformed image")
	cmd.MarkFlagsMutuallyExclusive("style", "prompt")
	return cmd
}

// loadImage reads a file through the same intake as the web upload. The
// content type comes from the extension, else from sniffing.
func loadImage(ctx context.Context, path string) (*domain.SelectedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	in := intake.New(intake.Options{})
	return in.Accept(ctx, filepath.Base(path), contentType, bytes.NewReader(data))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
