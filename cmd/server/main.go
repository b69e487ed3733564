package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/blusaccount/maexchen-online/config"
	"github.com/blusaccount/maexchen-online/game"
	"github.com/blusaccount/maexchen-online/logger"
	"github.com/blusaccount/maexchen-online/migrations"
	"github.com/blusaccount/maexchen-online/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

type repository interface {
	game.Ledger
	game.DocumentStore
	game.CharacterStore
}

// openRepository prefers Postgres and falls back to the local SQLite file.
func openRepository(ctx context.Context, cfg config.Config) (repository, func(), error) {
	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			return nil, nil, err
		}
		repo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("using postgres storage")
		return repo, repo.Close, nil
	}
	repo, err := storage.NewSQLiteRepo(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite storage")
	return repo, func() { repo.Close() }, nil
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	repo, closeRepo, err := openRepository(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("opening storage")
	}
	defer closeRepo()

	tickerGen := game.NewTickerGen()
	hotel := game.NewHotel(game.Config{
		MaxRoomMembers:     cfg.MaxPlayersPerRoom,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SweepInterval:      cfg.SweepInterval,
	}, repo, repo, repo, tickerGen)

	hotelCtx, stopHotel := context.WithCancel(context.Background())
	hotelStarted := make(chan struct{})
	hotelDone := make(chan struct{})
	go func() {
		hotel.Run(hotelCtx, hotelStarted)
		close(hotelDone)
	}()
	<-hotelStarted

	handler := game.NewHotelHandler(hotel, cfg.AllowedOrigins)
	prune, stopPrune := tickerGen.Create(cfg.SweepInterval)
	defer stopPrune()
	go func() {
		for range prune {
			handler.PruneAdmission()
		}
	}()

	r := CreateServer(cfg.AllowedOrigins)
	handler.RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	<-sigCh
	log.Info().Msg("SIGTERM or SIGINT received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	stopHotel()
	<-hotelDone
	log.Info().Msg("shutting down now")
}
