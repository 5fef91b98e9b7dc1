package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"greenscreen/internal/catalog"
	"greenscreen/internal/logging"
	"greenscreen/internal/mockhost"
)

var (
	serveAddr       string
	servePort       int
	serveScreens    string
	serveNavigation string
	serveData       string
	serveWatch      bool
)

// serveCmd runs the mock 5250 host.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mock 5250 host",
	Long: `Starts a telnet listener that emulates a 5250 application host using a
screen catalog, a navigation map and a loan data file. With --watch the
screen catalog reloads when its files change; live sessions keep their
current catalog snapshot until the next screen render.`,
	RunE: serveMockHost,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "bind address (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	serveCmd.Flags().StringVar(&serveScreens, "screens", "", "screen catalog file or directory")
	serveCmd.Flags().StringVar(&serveNavigation, "navigation", "", "navigation map file")
	serveCmd.Flags().StringVar(&serveData, "data", "", "loan data file")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "hot-reload the screen catalog on change")
}

func serveMockHost(cmd *cobra.Command, args []string) error {
	srvCfg := appConfig.Server
	if serveAddr != "" {
		srvCfg.Addr = serveAddr
	}
	if servePort != 0 {
		srvCfg.Port = servePort
	}
	if serveScreens != "" {
		srvCfg.ScreensDir = serveScreens
	}
	if serveNavigation != "" {
		srvCfg.NavigationPath = serveNavigation
	}
	if serveData != "" {
		srvCfg.DataPath = serveData
	}

	screens, err := catalog.NewStore(srvCfg.ScreensDir)
	if err != nil {
		return err
	}
	nav, err := mockhost.LoadNavigation(srvCfg.NavigationPath)
	if err != nil {
		return err
	}
	store, err := mockhost.LoadDataStore(srvCfg.DataPath)
	if err != nil {
		return err
	}

	srv := mockhost.NewServer(screens, nav, store)
	srv.Addr = srvCfg.Addr
	srv.Port = srvCfg.Port
	if srvCfg.SessionTimeoutSeconds > 0 {
		srv.SessionTimeout = time.Duration(srvCfg.SessionTimeoutSeconds) * time.Second
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.Get(logging.CategoryBoot)
	log.Infow("mock host starting",
		"addr", srvCfg.Addr, "port", srvCfg.Port,
		"screens", srvCfg.ScreensDir, "watch", serveWatch)

	g, ctx := errgroup.WithContext(ctx)
	if serveWatch {
		g.Go(func() error { return screens.Watch(ctx) })
	}
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Infow("mock host stopped")
	return nil
}
