// Package redislock lock de instancia única para el despachador de reintentos.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey clave del lock del despachador.
const DefaultKey = "sifen:dispatcher:lock"

// Connect abre el cliente desde una URL redis:// y verifica con PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("conectar a redis: %w", err)
	}
	return rdb, nil
}

// Renovar y liberar solo si el token coincide.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Client subconjunto de *redis.Client usado por el lock.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Lock lock distribuido con SET NX PX. Acquire también renueva si el lock ya es propio.
type Lock struct {
	client Client
	key    string
	ttl    time.Duration
	token  string
}

// New crea el lock. ttl debe cubrir al menos un ciclo completo del despachador.
func New(client Client, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Lock{client: client, key: key, ttl: ttl, token: uuid.NewString()}
}

// Acquire toma o renueva el lock. false sin error significa que otra instancia lo tiene.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	renewed, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("renovar lock %s: %w", l.key, err)
	}
	if renewed == 1 {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("tomar lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Release libera el lock si todavía es propio.
func (l *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("liberar lock %s: %w", l.key, err)
	}
	return nil
}

// LocalLock lock en memoria para una sola instancia (sin Redis configurado).
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

// Acquire siempre lo obtiene: hay un solo proceso.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = true
	return true, nil
}

// Release marca el lock como libre.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// Held indica si el lock fue tomado y no liberado.
func (l *LocalLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
