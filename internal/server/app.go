// Package server wires the auth service together: configuration, key
// material, storage, the HTTP and gRPC servers and the refresh token janitor.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/credentials"
	"github.com/dmitrijs2005/gophauth/internal/server/keys"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       redis.UniversalClient
	keys        *keys.Material
	verifier    *auth.Verifier
	userService *services.UserService
	janitor     *services.Janitor
}

// NewApp validates cfg, loads key material and opens storage. Any failure
// here is fatal for the process.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	if err := c.Validate(); err != nil {
		return nil, err
	}

	src, err := keySource(ctx, c)
	if err != nil {
		return nil, err
	}
	material, err := keys.Load(ctx, src, c.RefreshTokenSecret)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "key material loaded", "kid", material.KeyID(), "source", fmt.Sprint(src))

	passwords, err := credentials.NewVerifier(c.BcryptCost)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, c.DatabaseDSN, c.StoreTimeout)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, keys: material}

	var opts []repomanager.Option
	if c.RefreshStore == config.StoreRedis {
		app.redis, err = openRedis(ctx, c)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		opts = append(opts, repomanager.WithRedisRefreshTokens(app.redis))
	}
	rm := repomanager.NewPostgresRepositoryManager(opts...)

	if c.MigrateOnStart {
		if err := rm.RunMigrations(ctx, db); err != nil {
			app.close()
			return nil, err
		}
	}

	issuer := auth.NewIssuer(material,
		auth.WithIssuerName(c.Issuer),
		auth.WithAccessTTL(c.AccessTokenValidityDuration),
	)
	app.verifier = auth.NewVerifier(material,
		auth.WithExpectedIssuer(c.Issuer),
		auth.WithLogger(logger.With("module", "verifier")),
	)
	tokens := services.Tokens{
		Issuer:     issuer,
		Verifier:   app.verifier,
		RefreshTTL: c.RefreshTokenValidityDuration,
	}

	app.userService = services.NewUserService(db, rm, passwords, tokens, logger)
	app.janitor = services.NewJanitor(rm.RefreshTokens(db), c.JanitorPeriod, logger)

	return app, nil
}

func keySource(ctx context.Context, c *config.Config) (keys.Source, error) {
	if c.S3PrivateKeyObject == "" {
		return keys.FileSource{Path: c.PrivateKeyPath}, nil
	}
	client, err := keys.NewS3Client(ctx, keys.S3Settings{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w: %w", common.ErrConfigurationFatal, err)
	}
	return keys.S3Source{Client: client, Bucket: c.S3Bucket, Key: c.S3PrivateKeyObject}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	jwks, err := app.keys.JWKSJSON()
	if err != nil {
		return err
	}
	s := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.verifier, jwks, rest.Options{
		CookieDomain:   app.config.CookieDomain,
		AccessTTL:      app.config.AccessTokenValidityDuration,
		RefreshTTL:     app.config.RefreshTokenValidityDuration,
		RequestTimeout: app.config.StoreTimeout,
	})
	return s.Run(ctx)
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.verifier)
	return s.Run(ctx)
}

// Run serves until a signal arrives or one of the servers fails. It returns
// the first server error.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" stopped", "error", err)
				once.Do(func() { firstErr = err })
				cancelFunc()
			}
		}()
	}

	run("http server", app.startHTTPServer)
	if app.config.EndpointAddrGRPC != "" {
		run("grpc server", app.startGRPCServer)
	}
	run("janitor", func(ctx context.Context) error {
		app.janitor.Run(ctx)
		return nil
	})

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return firstErr
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			app.logger.Warn(context.Background(), "redis close", "error", err)
		}
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
