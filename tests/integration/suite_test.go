package integration

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/rkshawon/interprep/internal/infrastructure/config"
	"github.com/rkshawon/interprep/internal/infrastructure/server"
)

// adminKey is the plaintext admin API key the suite's server accepts.
const adminKey = "integration-admin-key"

// fixturePack is seeded into the suite catalog before the server boots.
const fixturePack = `id: basics
title: Language Basics
topic: syntax
snippets:
  - id: hello
    title: Hello
    source: console.log("hello")
    expect: hello
  - id: sum
    title: Sum
    source: console.log(2 + 3)
    expect: "5"
`

// The Prometheus collectors bind to the process-wide default registry,
// so the whole suite shares one server instance.
var (
	suiteOnce sync.Once
	suiteSrv  *server.Server
	suiteErr  error
)

func testServer(t *testing.T) *server.Server {
	t.Helper()

	suiteOnce.Do(func() {
		gin.SetMode(gin.TestMode)

		root, err := os.MkdirTemp("", "interprep-integration-")
		if err != nil {
			suiteErr = err
			return
		}

		catalogDir := filepath.Join(root, "catalog")
		if err := os.MkdirAll(catalogDir, 0o755); err != nil {
			suiteErr = err
			return
		}
		if err := os.WriteFile(filepath.Join(catalogDir, "basics.yaml"), []byte(fixturePack), 0o644); err != nil {
			suiteErr = err
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
		if err != nil {
			suiteErr = err
			return
		}

		cfg := config.Default()
		cfg.Catalog.Dir = catalogDir
		cfg.History.Path = filepath.Join(root, "data", "history.db")
		cfg.Auth.AdminKeyHash = string(hash)
		cfg.RateLimit.Enabled = false
		cfg.Sandbox.PoolSize = 2

		suiteSrv, suiteErr = server.New(cfg)
	})

	if suiteErr != nil {
		t.Fatalf("suite server: %v", suiteErr)
	}
	return suiteSrv
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return testServer(t).Router()
}
