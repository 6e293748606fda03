package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/nleskin/repurpose/internal/client/session"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session Status ===")
	c.io.Println()

	sess, state := c.sessions.Current()

	switch state {
	case session.StateAuthenticated:
		c.io.Println("Status: Authenticated")
	case session.StateTentative:
		c.io.Println("Status: Authenticated (pending server confirmation)")
	default:
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'repurpose login' to authenticate.")
		return nil
	}

	c.io.Printf("Email:    %s\n", sess.User.Email)
	c.io.Printf("Username: %s\n", sess.User.Username)
	if sess.User.IsPremium {
		c.io.Println("Plan:     Premium")
	} else {
		c.io.Println("Plan:     Free")
	}

	if sess.ExpiresAt > 0 {
		expiresAt := time.Unix(sess.ExpiresAt, 0)
		c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
		if remaining := time.Until(expiresAt); remaining > 0 {
			c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("⚠️  Token has expired. It will be refreshed on the next request.")
		}
	}

	// Квота best effort: статус сессии важнее доступности сервера
	usage, err := c.content.Usage(ctx)
	if err != nil {
		c.io.Printf("\nWarning: failed to get usage quota: %v\n", err)
		return nil
	}

	c.io.Println()
	c.io.Printf("Generations: %d/%d used, %d remaining\n",
		usage.GenerationsUsed, usage.GenerationsMax, usage.Remaining())
	if !usage.PeriodEndsAt.IsZero() {
		c.io.Printf("Quota resets: %s\n", usage.PeriodEndsAt.Format(time.RFC3339))
	}

	return nil
}

func (c *Cli) runRefresh(ctx context.Context) error {
	if !c.sessions.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'repurpose login' first")
	}

	if err := c.sessions.Refresh(ctx); err != nil {
		return err
	}

	sess, _ := c.sessions.Current()
	c.io.Println("✓ Access token refreshed.")
	if sess.ExpiresAt > 0 {
		c.io.Printf("New token expires: %s\n", time.Unix(sess.ExpiresAt, 0).Format(time.RFC3339))
	}

	return nil
}
