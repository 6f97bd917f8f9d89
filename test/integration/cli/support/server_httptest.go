package support

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/config"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/MeKo-Tech/holdscan/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// serverOptions configures the in-process API server.
type serverOptions struct {
	catalogFile       string
	requestsPerMinute int
	corsOrigin        string
}

// startTestHTTPServer runs the real recognition handlers on an httptest
// listener, with the default engine configuration.
func (testCtx *TestContext) startTestHTTPServer(opts serverOptions) error {
	if testCtx.HTTPTestServer != nil {
		return nil
	}

	cfg := config.DefaultConfig()
	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return fmt.Errorf("failed to build engine options: %w", err)
	}
	engine := recognizer.New(engineOpts...)

	catalogCfg := catalog.DefaultConfig()
	if opts.catalogFile != "" {
		catalogCfg.Driver = "file"
		catalogCfg.File = testCtx.resolvePath(opts.catalogFile)
	}
	store, err := catalog.Open(context.Background(), catalogCfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	corsOrigin := opts.corsOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	serverConfig := server.Config{
		CORSOrigin: corsOrigin,
		MaxBodyMB:  1,
		TimeoutSec: 10,
	}
	if opts.requestsPerMinute > 0 {
		serverConfig.RateLimit = server.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: opts.requestsPerMinute,
			RequestsPerHour:   opts.requestsPerMinute * 60,
		}
	}

	apiServer, err := server.NewServer(serverConfig, engine, store)
	if err != nil {
		_ = store.Close(context.Background())
		return fmt.Errorf("failed to create server: %w", err)
	}

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(apiServer.Handler()),
		TestServer: apiServer,
	}
	return nil
}

// StopServer stops the running test server, if any.
func (testCtx *TestContext) StopServer() error {
	if testCtx.HTTPTestServer == nil {
		return nil
	}
	testCtx.HTTPTestServer.Server.Close()
	err := testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
	return err
}

func (testCtx *TestContext) serverURL() (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("the recognition API is not running")
	}
	return testCtx.HTTPTestServer.Server.URL, nil
}
