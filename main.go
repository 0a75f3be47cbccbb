package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TeamRekursion/darkmoon-server/chat"
	"github.com/TeamRekursion/darkmoon-server/config"
	"github.com/TeamRekursion/darkmoon-server/logger"
	"github.com/TeamRekursion/darkmoon-server/relay"
	"github.com/TeamRekursion/darkmoon-server/room"
	"github.com/TeamRekursion/darkmoon-server/server"
	"github.com/TeamRekursion/darkmoon-server/session"
)

const shutdownWait = 5 * time.Second

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zlog *zap.Logger) error {
	words := cfg.ChatProfanity
	if len(words) == 0 {
		words = chat.DefaultWords
	}

	opts := []room.Option{
		room.WithLogger(zlog),
		room.WithFilter(chat.NewFilter(words)),
		room.WithSession(session.New(session.WithTuning(cfg.Game.Tuning()))),
		room.WithDefaultDuration(cfg.Game.DefaultDuration),
		room.WithTickInterval(cfg.TickInterval),
	}

	g, ctx := errgroup.WithContext(ctx)

	roomID := uuid.New()
	opts = append(opts, room.WithRoomID(roomID))
	if cfg.RedisURL != "" {
		client, err := relay.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		rl := relay.NewRedis(client, cfg.RedisChannel, roomID.String(), zlog)
		opts = append(opts, room.WithNotifier(rl))
		g.Go(func() error { return rl.Run(ctx) })
		zlog.Info("relaying notifications to redis", zap.String("channel", cfg.RedisChannel))
	}

	rm := room.CreateRoom(opts...)
	g.Go(func() error { return rm.Run(ctx) })

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           server.NewRouter(rm, server.Options{AllowedOrigins: cfg.AllowedOrigins}, zlog),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		zlog.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Strings("allowed_origins", cfg.AllowedOrigins),
			zap.String("room", rm.RoomID.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
