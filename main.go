package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/MarcGrol/storefront/config"
	"github.com/MarcGrol/storefront/lib/myhttpclient"
	"github.com/MarcGrol/storefront/lib/mykv"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mypubsub"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/lib/myuuid"
	"github.com/MarcGrol/storefront/services/cart"
	"github.com/MarcGrol/storefront/services/cart/cartevents"
	"github.com/MarcGrol/storefront/services/catalog"
	"github.com/MarcGrol/storefront/services/users"
	"github.com/MarcGrol/storefront/services/warmup"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	envFile := ""

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront with a stock-aware shopping cart",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional file with environment variables")

	loadConfig := func() (*config.Config, error) {
		return config.Load(envFile)
	}

	rootCmd.AddCommand(newServeCmd(loadConfig))
	rootCmd.AddCommand(newProductsCmd(loadConfig))
	rootCmd.AddCommand(newCartCmd(loadConfig))
	rootCmd.AddCommand(newRegisterCmd(loadConfig))

	return rootCmd
}

type configLoader func() (*config.Config, error)

// app holds the collaborators shared by the web server and the cli.
type app struct {
	cfg       *config.Config
	logger    mylog.Logger
	sender    myhttpclient.HTTPSender
	catalog   *catalog.Catalog
	store     *cart.Store
	publisher mypublisher.Publisher
	cleanups  []func()
}

func newApp(c context.Context, cfg *config.Config) (*app, error) {
	mylog.SetLevel(cfg.LogLevel)

	a := &app{
		cfg:    cfg,
		logger: mylog.New("storefront"),
	}
	a.sender = myhttpclient.New(cfg.HTTPTimeout, mylog.New("httpclient"))
	a.catalog = catalog.New(cfg.BackendURL, a.sender, mylog.New("catalog"))

	kv, kvCleanup, err := mykv.New(c, cfg.Cart, mylog.New("kv"))
	if err != nil {
		return nil, fmt.Errorf("error opening cart backend: %w", err)
	}
	a.cleanups = append(a.cleanups, kvCleanup)

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error creating pubsub: %w", err)
	}
	a.cleanups = append(a.cleanups, pubsubCleanup)

	a.publisher = mypublisher.New(pubsub, mytime.RealNower{}, myuuid.RealUUIDer{})
	err = a.publisher.CreateTopic(c, cartevents.TopicName)
	if err != nil {
		// events are best effort, the cart works without them
		a.logger.Log(c, "", mylog.SeverityWarn, "Error creating topic %s: %s", cartevents.TopicName, err)
	}

	a.store = cart.New(c, a.catalog, kv, a.publisher, mytime.RealTimer{}, cfg.NotificationTTL, mylog.New("cart"))
	a.cleanups = append(a.cleanups, a.store.Close)

	return a, nil
}

func (a *app) close() {
	for idx := len(a.cleanups) - 1; idx >= 0; idx-- {
		a.cleanups[idx]()
	}
	a.cleanups = nil
}

func newServeCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the storefront webserver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(c, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			err = a.catalog.Refresh(c)
			if err != nil {
				a.logger.Log(c, "", mylog.SeverityWarn, "Starting without products: %s", err)
			}

			return startWebServerBlocking(c, cfg.Port, a.router(c), a.logger)
		},
	}
}

func (a *app) router(c context.Context) *mux.Router {
	router := mux.NewRouter()

	cart.NewService(c, a.store, mylog.New("cart")).RegisterEndpoints(c, router)
	catalog.NewService(a.catalog, a.store, mylog.New("catalog")).RegisterEndpoints(c, router)
	users.NewService(users.NewClient(a.cfg.BackendURL, a.sender, mylog.New("users")), mylog.New("users")).RegisterEndpoints(c, router)
	warmup.NewService(a.catalog, mylog.New("warmup")).RegisterEndpoints(c, router)

	return router
}

func startWebServerBlocking(c context.Context, port string, router *mux.Router, logger mylog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-c.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Log(c, "", mylog.SeverityInfo, "Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error starting webserver on port %s: %w", port, err)
	}
	logger.Log(c, "", mylog.SeverityInfo, "Webserver stopped")

	return nil
}
