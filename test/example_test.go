package test

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/authguard"
	"github.com/MrEthical07/authguard/cipher"
	"github.com/MrEthical07/authguard/middleware"
	"github.com/MrEthical07/authguard/session"
	"github.com/redis/go-redis/v9"
)

// Example_newEngine demonstrates engine construction with production-style dependencies.
func Example_newEngine() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	key, _ := cipher.GenerateKey()

	cfg := authguard.DefaultConfig()
	cfg.JWT.SigningKey = []byte("replace-with-32-or-more-random-bytes")
	cfg.Cipher.Key = key

	engine, _ := authguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	_ = engine
}

// Example_singleSession shows the single active refresh token rule.
func Example_singleSession() {
	key, _ := cipher.GenerateKey()
	cfg := authguard.DefaultConfig()
	cfg.JWT.SigningKey = []byte("example-signing-key-0123456789abcdef")
	cfg.Cipher.Key = key

	engine, err := authguard.New().
		WithConfig(cfg).
		WithSessionStore(session.NewMemoryStore(nil)).
		Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close()

	ctx := context.Background()
	first, _ := engine.Login(ctx, "alice", nil)
	_, _ = engine.Login(ctx, "alice", nil)

	_, err = engine.ValidateRefresh(ctx, first.RefreshToken)
	fmt.Println(errors.Is(err, authguard.ErrSessionMismatch))
	fmt.Println(authguard.RejectionFor(err).Reason)
	// Output:
	// true
	// Attack identified!
}

// Example_accessGuard wires the access guard with a path-asserted identity.
func Example_accessGuard() {
	var engine *authguard.Engine

	mux := http.NewServeMux()
	guard := middleware.AccessGuard(engine, middleware.WithAssertedIdentity(func(r *http.Request) string {
		return r.PathValue("user_id")
	}))
	mux.Handle("GET /users/{user_id}/profile", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, _ := middleware.AuthResultFromContext(r.Context())
		_, _ = w.Write([]byte(res.Identity))
	})))
}
