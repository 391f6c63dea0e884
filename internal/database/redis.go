package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/JulioAnalista/vendas-audit/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const runKeyPrefix = "nfe:import:run:"

// Redis representa la conexión a Redis, usada como almacén de corridas de importación
type Redis struct {
	*redis.Client
	runTTL time.Duration
}

// ConnectRedis establece la conexión a Redis
func ConnectRedis(cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging Redis: %w", err)
	}

	return NewRedis(client, cfg.Redis.RunTTL), nil
}

// NewRedis envuelve un cliente existente
func NewRedis(client *redis.Client, runTTL time.Duration) *Redis {
	return &Redis{Client: client, runTTL: runTTL}
}

// Close cierra la conexión a Redis
func (r *Redis) Close() error {
	return r.Client.Close()
}

// HealthCheck verifica la salud de Redis
func (r *Redis) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.Ping(ctx).Err()
}

// SaveRun guarda el snapshot de una corrida con TTL
func (r *Redis) SaveRun(ctx context.Context, run *models.ImportRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("error encoding import run: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.Set(ctx, runKeyPrefix+run.ID.String(), payload, r.runTTL).Err(); err != nil {
		return fmt.Errorf("error saving import run: %w", err)
	}
	return nil
}

// GetRun obtiene el último snapshot de una corrida
func (r *Redis) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := r.Get(ctx, runKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("import run %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("error reading import run: %w", err)
	}

	var run models.ImportRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("error decoding import run: %w", err)
	}
	return &run, nil
}

// LogStats registra las estadísticas del pool de Redis
func (r *Redis) LogStats(logger *logrus.Logger) {
	stats := r.PoolStats()
	logger.WithFields(logrus.Fields{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
	}).Info("Redis pool statistics")
}
