package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	viewerApp "pdfviewer/internal/app"
	"pdfviewer/internal/config"
	"pdfviewer/internal/document"
	"pdfviewer/internal/localstore"
	"pdfviewer/internal/service"
)

//go:embed all:frontend/dist
var assets embed.FS

// Version is set during build.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "pdfviewer",
		Usage:   "PDF viewer with rectangle annotations",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: config.DefaultPath(),
				Usage: "YAML config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file with PDFVIEWER_* variables",
			},
			&cli.StringFlag{
				Name:    "document",
				Aliases: []string{"d"},
				Usage:   "PDF file to open",
			},
			&cli.StringFlag{
				Name:  "remote-url",
				Usage: "rectangles endpoint used for persistence (empty disables it)",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "address the rectangles endpoint listens on",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: runViewer,
		Commands: []*cli.Command{
			{
				Name:   "view",
				Usage:  "Open the desktop viewer (default)",
				Action: runViewer,
			},
			{
				Name:   "serve",
				Usage:  "Serve the rectangles endpoint",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdin/stdout",
				Action: runMCP,
			},
			{
				Name:      "pages",
				Usage:     "Print the page dimensions of a PDF",
				ArgsUsage: "<file.pdf>",
				Action:    runPages,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig layers the CLI flags over the config file and environment.
// A positional argument names the document.
func loadConfig(c *cli.Context) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return nil, nil, err
	}

	flags := map[string]*string{
		"document":   &cfg.Document,
		"remote-url": &cfg.RemoteURL,
		"listen":     &cfg.Listen,
		"log-level":  &cfg.LogLevel,
	}
	for name, dst := range flags {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.Args().Present() {
		cfg.Document = c.Args().First()
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, config.NewLogger(cfg.LogLevel), nil
}

func runViewer(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	var settingsStore service.SettingsStore
	if st, err := localstore.Open(cfg.LocalStorageDir()); err != nil {
		logger.WithError(err).Warn("view settings will not be saved")
	} else {
		settingsStore = st
	}
	settings := service.NewViewSettingsService(settingsStore)
	size := settings.LoadWindowSize()

	app := viewerApp.New(cfg, logger, settings)

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	return wails.Run(&options.App{
		Title:     "PDF Viewer",
		Width:     size.Width,
		Height:    size.Height,
		MinWidth:  640,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 38, G: 38, B: 42, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnBeforeClose:    app.BeforeClose,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: mac.TitleBarDefault(),
			About: &mac.AboutInfo{
				Title:   "PDF Viewer",
				Message: "PDF viewer with rectangle annotations",
			},
		},
	})
}

func runServe(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	return viewerApp.ServeHTTP(cfg, logger)
}

func runMCP(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	return viewerApp.ServeMCP(cfg, logger, Version)
}

func runPages(c *cli.Context) error {
	if !c.Args().Present() {
		return cli.Exit("usage: pdfviewer pages <file.pdf>", 2)
	}
	doc, err := document.Open(c.Args().First())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tWIDTH\tHEIGHT")
	for _, p := range doc.Pages {
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\n", p.Page, p.Width, p.Height)
	}
	return w.Flush()
}
