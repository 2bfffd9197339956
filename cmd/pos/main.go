package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kafisabah/HSP/internal/auth"
	"github.com/Kafisabah/HSP/internal/cache"
	"github.com/Kafisabah/HSP/internal/config"
	"github.com/Kafisabah/HSP/internal/service"
	"github.com/Kafisabah/HSP/internal/store"
	"github.com/Kafisabah/HSP/internal/store/memory"
	pgstore "github.com/Kafisabah/HSP/internal/store/postgres"
	"github.com/Kafisabah/HSP/internal/terminal"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, cfg.AllowNegativeStock)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		mem := memory.NewSeeded()
		mem.SetAllowNegativeStock(cfg.AllowNegativeStock)
		repo = mem
		log.Println("repository: in-memory (veriler kalıcı değil)")
	}

	productCache := cache.ProductCache(cache.NoopProductCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisProductCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			productCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	authMgr := auth.NewManager(repo)
	if err := authMgr.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("admin bootstrap failed: %v", err)
	}

	svc := service.New(repo, productCache, time.Duration(cfg.ProductCacheTTLSec)*time.Second, cfg.LoyaltyEarnRate)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	term := terminal.New(svc, authMgr, os.Stdin, os.Stdout, cfg.StoreName)
	if err := term.Run(runCtx); err != nil && runCtx.Err() == nil {
		log.Printf("terminal error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}
	log.Println("kapatıldı")
}
