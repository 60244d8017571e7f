// Package cli provides the main command-line entry point for the forge
// control plane. This package orchestrates the complete process lifecycle:
// configuration loading, Store Adapter and Resource Manager construction
// for every controlled kind, Watcher/Controller Loop/GC sweeper wiring, the
// Policy Enforcement Engine's live-reloaded model, and the HTTP boundary —
// all run as siblings under one scheduler.Arbiter, grounded on
// cli/root.go's RootCmd/init/initConfig/runServer shape (viper flag
// bindings, Echo middleware stack, SIGINT/SIGTERM graceful shutdown).
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgebase/forge/acl"
	aclv1alpha1 "github.com/forgebase/forge/acl/v1alpha1"
	authv1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/common"
	"github.com/forgebase/forge/config"
	"github.com/forgebase/forge/controller"
	"github.com/forgebase/forge/dashboard"
	"github.com/forgebase/forge/httpapi"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/oauth"
	"github.com/forgebase/forge/reconcilers"
	"github.com/forgebase/forge/scheduler"
	"github.com/forgebase/forge/store"
	"github.com/forgebase/forge/version"
	"github.com/forgebase/forge/watch"
)

// cfgFile holds the path to the configuration file given via --config. An
// empty value falls back to config.Load's own ./.forge.yaml/$HOME/.forge.yaml
// search.
var cfgFile string

// RootCmd is the forge process's entry point: load configuration, wire
// every controlled kind's Controller Loop and the ACL engine, serve the
// HTTP boundary, and run until told to stop.
var RootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge control plane: generic resource controllers plus ACL enforcement",
	Long: `forge

A generic watch/reconcile controller runtime over a CouchDB document store,
paired with a live-reloaded policy enforcement engine. Every controlled
kind's Watcher and Controller Loop, the GC sweeper, the ACL model loader,
and the HTTP API run as sibling tasks under one scheduler.Arbiter so a
fatal failure in any one of them brings the rest down together.

Configuration can be provided via command-line flags, FORGE_-prefixed
environment variables, or a YAML configuration file, with flags taking
precedence.`,
	Run: runServer,
}

func init() {
	cobra.OnInitialize(func() {})

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.forge.yaml or $HOME/.forge.yaml)")
	RootCmd.PersistentFlags().String("couchdb-url", "", "CouchDB connection URL")
	RootCmd.PersistentFlags().String("http-addr", "", "HTTP listen address")
	RootCmd.PersistentFlags().String("log-level", "", "log level (trace|debug|info|warn|error)")

	viper.BindPFlag("couchdb.url", RootCmd.PersistentFlags().Lookup("couchdb-url"))
	viper.BindPFlag("http.addr", RootCmd.PersistentFlags().Lookup("http-addr"))
	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))
}

// runServer loads configuration, builds the full set of Resource Managers,
// Watchers, Controller Loops and the ACL engine, and runs them all under a
// scheduler.Arbiter until a shutdown signal arrives.
func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "forge: configuration error:", err)
		os.Exit(1)
	}
	// Flags given on the command line override file and environment values.
	flags := cmd.PersistentFlags()
	if flags.Changed("couchdb-url") {
		cfg.CouchDB.URL, _ = flags.GetString("couchdb-url")
	}
	if flags.Changed("http-addr") {
		cfg.HTTP.Addr, _ = flags.GetString("http-addr")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "forge: configuration error:", err)
		os.Exit(1)
	}

	logger := common.NewLogger(common.LoggerConfig{
		Level:   common.LogLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Service: "forge",
		Version: version.GetModuleVersion(),
	})
	log := logger.WithField("module_version", version.GetModuleVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("forge: fatal error")
	}
}

// run wires and executes the process; split out from runServer so the
// wiring itself (as opposed to flag/signal plumbing) can be unit tested.
func run(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	st, err := store.NewCouchStore(ctx, store.Config{
		URL:      cfg.CouchDB.URL,
		Username: cfg.CouchDB.Username,
		Password: cfg.CouchDB.Password,
	})
	if err != nil {
		return fmt.Errorf("forge: connecting to couchdb: %w", err)
	}

	users := manager.New(st, (&authv1alpha1.User{}).GetTypeMeta(), func() *authv1alpha1.User { return &authv1alpha1.User{} })
	clients := manager.New(st, (&authv1alpha1.Client{}).GetTypeMeta(), func() *authv1alpha1.Client { return &authv1alpha1.Client{} })
	authCodes := manager.New(st, (&authv1alpha1.AuthCode{}).GetTypeMeta(), func() *authv1alpha1.AuthCode { return &authv1alpha1.AuthCode{} })
	policies := manager.New(st, (&aclv1alpha1.Policy{}).GetTypeMeta(), func() *aclv1alpha1.Policy { return &aclv1alpha1.Policy{} })
	policyAttachments := manager.New(st, (&aclv1alpha1.PolicyAttachment{}).GetTypeMeta(), func() *aclv1alpha1.PolicyAttachment { return &aclv1alpha1.PolicyAttachment{} })
	roles := manager.New(st, (&aclv1alpha1.Role{}).GetTypeMeta(), func() *aclv1alpha1.Role { return &aclv1alpha1.Role{} })
	roleAttachments := manager.New(st, (&aclv1alpha1.RoleAttachment{}).GetTypeMeta(), func() *aclv1alpha1.RoleAttachment { return &aclv1alpha1.RoleAttachment{} })

	for _, ensure := range []func(context.Context) error{
		users.EnsureDatabase, clients.EnsureDatabase, authCodes.EnsureDatabase,
		policies.EnsureDatabase, policyAttachments.EnsureDatabase, roles.EnsureDatabase, roleAttachments.EnsureDatabase,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("forge: ensuring database: %w", err)
		}
	}

	userWatcher := watch.New(st, (&authv1alpha1.User{}).GetTypeMeta(), func() *authv1alpha1.User { return &authv1alpha1.User{} })
	clientWatcher := watch.New(st, (&authv1alpha1.Client{}).GetTypeMeta(), func() *authv1alpha1.Client { return &authv1alpha1.Client{} })
	authCodeWatcher := watch.New(st, (&authv1alpha1.AuthCode{}).GetTypeMeta(), func() *authv1alpha1.AuthCode { return &authv1alpha1.AuthCode{} })
	policyWatcher := watch.New(st, (&aclv1alpha1.Policy{}).GetTypeMeta(), func() *aclv1alpha1.Policy { return &aclv1alpha1.Policy{} })
	policyAttachmentWatcher := watch.New(st, (&aclv1alpha1.PolicyAttachment{}).GetTypeMeta(), func() *aclv1alpha1.PolicyAttachment { return &aclv1alpha1.PolicyAttachment{} })
	roleWatcher := watch.New(st, (&aclv1alpha1.Role{}).GetTypeMeta(), func() *aclv1alpha1.Role { return &aclv1alpha1.Role{} })
	roleAttachmentWatcher := watch.New(st, (&aclv1alpha1.RoleAttachment{}).GetTypeMeta(), func() *aclv1alpha1.RoleAttachment { return &aclv1alpha1.RoleAttachment{} })

	userLoop := controller.New("users", userWatcher, users, &reconcilers.User{RM: users}, loopConfig(cfg, "users", log))
	clientLoop := controller.New("clients", clientWatcher, clients, &reconcilers.Client{RM: clients}, loopConfig(cfg, "clients", log))
	authCodeLoop := controller.New("authcodes", authCodeWatcher, authCodes, &reconcilers.AuthCode{RM: authCodes}, loopConfig(cfg, "authcodes", log))
	policyLoop := controller.New("policies", policyWatcher, policies, &reconcilers.Policy{RM: policies}, loopConfig(cfg, "policies", log))
	policyAttachmentLoop := controller.New("policyattachments", policyAttachmentWatcher, policyAttachments,
		&reconcilers.PolicyAttachment{RM: policyAttachments, Policies: policies}, loopConfig(cfg, "policyattachments", log))
	roleLoop := controller.New("roles", roleWatcher, roles, &reconcilers.Role{RM: roles}, loopConfig(cfg, "roles", log))
	roleAttachmentLoop := controller.New("roleattachments", roleAttachmentWatcher, roleAttachments,
		&reconcilers.RoleAttachment{RM: roleAttachments}, loopConfig(cfg, "roleattachments", log))

	gc := controller.NewGCSweeper(controller.GCConfig{PollingInterval: cfg.GC.PollingInterval, Logger: log})
	gc.Register("users", controller.NewKindSweeper("users", users, userLoop))
	gc.Register("clients", controller.NewKindSweeper("clients", clients, clientLoop))
	gc.Register("authcodes", controller.NewKindSweeper("authcodes", authCodes, authCodeLoop))
	gc.Register("policies", controller.NewKindSweeper("policies", policies, policyLoop))
	gc.Register("policyattachments", controller.NewKindSweeper("policyattachments", policyAttachments, policyAttachmentLoop))
	gc.Register("roles", controller.NewKindSweeper("roles", roles, roleLoop))
	gc.Register("roleattachments", controller.NewKindSweeper("roleattachments", roleAttachments, roleAttachmentLoop))

	enforcer := acl.NewEnforcer(log)
	aclWatchers := acl.Watchers{
		Policies:          policyWatcher,
		PolicyAttachments: policyAttachmentWatcher,
		Roles:             roleWatcher,
		RoleAttachments:   roleAttachmentWatcher,
	}
	wiring := acl.NewWiring(enforcer, policies, policyAttachments, roleAttachments, aclWatchers, log)

	exchange := oauth.NewExchange(users, clients, authCodes, oauth.NewTokenService(tokenSecret(), time.Hour))

	hub := dashboard.NewHub(log)
	dashboard.PushEvents(ctx, hub, users, "users")
	dashboard.PushEvents(ctx, hub, clients, "clients")
	dashboard.PushEvents(ctx, hub, policies, "policies")
	dashboard.PushEvents(ctx, hub, roles, "roles")

	e := httpapi.New(enforcer, hub)
	httpapi.RegisterOAuth(e, exchange)
	httpapi.RegisterCRUD(e.Group("/v1/auth/users"), users, func() *authv1alpha1.User { return &authv1alpha1.User{} })
	httpapi.RegisterCRUD(e.Group("/v1/auth/clients"), clients, func() *authv1alpha1.Client { return &authv1alpha1.Client{} })
	httpapi.RegisterCRUD(e.Group("/v1/acl/policies"), policies, func() *aclv1alpha1.Policy { return &aclv1alpha1.Policy{} })
	httpapi.RegisterCRUD(e.Group("/v1/acl/policyattachments"), policyAttachments, func() *aclv1alpha1.PolicyAttachment { return &aclv1alpha1.PolicyAttachment{} })
	httpapi.RegisterCRUD(e.Group("/v1/acl/roles"), roles, func() *aclv1alpha1.Role { return &aclv1alpha1.Role{} })
	httpapi.RegisterCRUD(e.Group("/v1/acl/roleattachments"), roleAttachments, func() *aclv1alpha1.RoleAttachment { return &aclv1alpha1.RoleAttachment{} })

	arbiter := scheduler.New(scheduler.WithLogger(log))
	arbiter.Spawn("watcher:users-controller", userLoop.Run)
	arbiter.Spawn("watcher:clients-controller", clientLoop.Run)
	arbiter.Spawn("watcher:authcodes-controller", authCodeLoop.Run)
	arbiter.Spawn("watcher:policies-controller", policyLoop.Run)
	arbiter.Spawn("watcher:policyattachments-controller", policyAttachmentLoop.Run)
	arbiter.Spawn("watcher:roles-controller", roleLoop.Run)
	arbiter.Spawn("watcher:roleattachments-controller", roleAttachmentLoop.Run)
	arbiter.Spawn("gc-sweeper", gc.Run)
	arbiter.Spawn("acl-wiring", wiring.Run)
	arbiter.Spawn("http-server", httpServerTask(e, cfg.HTTP.Addr, log))

	log.WithField("addr", cfg.HTTP.Addr).Info("forge: starting")
	return arbiter.Run(ctx)
}

// httpServerTask adapts an *echo.Echo into a scheduler.Task: it starts the
// listener in the background and blocks on ctx, shutting the server down
// with a 10-second grace period once ctx is cancelled — mirroring
// cli/root.go's own SIGINT/SIGTERM-then-10s-Shutdown pattern, but as one
// sibling task among many instead of the sole top-level flow.
func httpServerTask(e *echo.Echo, addr string, log *logrus.Entry) func(context.Context) error {
	return func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				errCh <- err
				return
			}
			errCh <- nil
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("forge: http server shutdown error")
				return err
			}
			return nil
		}
	}
}

func loopConfig(cfg *config.Config, kind string, log *logrus.Entry) controller.Config {
	return controller.Config{
		PollingInterval: cfg.Controllers[kind].PollingInterval,
		Logger:          log.WithField("kind", kind),
	}
}

// tokenSecret reads the JWT signing secret for the OAuth2 token service.
// When FORGE_OAUTH_SECRET is unset it returns a fixed, publicly known
// development secret, which is only acceptable for local development; a
// production deployment must set FORGE_OAUTH_SECRET.
func tokenSecret() string {
	if secret := os.Getenv("FORGE_OAUTH_SECRET"); secret != "" {
		return secret
	}
	return "development-only-insecure-secret"
}
