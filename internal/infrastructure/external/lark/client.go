package lark

import (
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID      string
	AppSecret  string
	APITimeout time.Duration
}

// Client wraps the Lark SDK client
type Client struct {
	sdk    *lark.Client
	logger *zap.Logger
}

// NewClient creates a new Lark SDK client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 30 * time.Second
	}

	sdk := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
		lark.WithReqTimeout(cfg.APITimeout),
	)

	return &Client{
		sdk:    sdk,
		logger: logger,
	}
}
