package main

import (
	"context"
	"fmt"
	"time"

	"github.com/daikw/duet/internal/room"
	"github.com/urfave/cli/v3"
)

func handleToken(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ttl := c.Duration("ttl")
	if ttl == 0 {
		ttl = time.Duration(cfg.Room.TokenTTL)
	}

	token, err := room.AccessToken(cfg.Room.APIKey, cfg.Room.APISecret, room.Grant{
		Room:         c.String("room"),
		Identity:     c.String("identity"),
		Name:         c.String("name"),
		CanPublish:   true,
		CanSubscribe: true,
	}, ttl)
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}

	fmt.Println(token)
	return nil
}
