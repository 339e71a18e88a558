package config

import "context"

type Store interface {
	GetConfig(ctx context.Context) (*Config, error)
	PutConfig(ctx context.Context, c *Config) error
}
