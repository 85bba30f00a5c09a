// Package lark adapts the messaging platform SDK: sending and patching
// messages, building interactive cards, and decoding webhook payloads
// into the platform-neutral event types the pipeline consumes.
package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Client wraps the Lark SDK client.
type Client struct {
	client *lark.Client
	appID  string
	logger *zap.Logger
}

// Config holds Lark client configuration.
type Config struct {
	AppID     string
	AppSecret string
}

// NewClient creates a new Lark client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &Client{
		client: client,
		appID:  cfg.AppID,
		logger: logger,
	}
}

// AppID returns the application id this client authenticates as, used
// to recognize the bot's own messages in inbound events.
func (c *Client) AppID() string {
	return c.appID
}
