package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	wasAuthenticated := c.sessions.IsAuthenticated()

	if err := c.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	if wasAuthenticated {
		c.io.Println("✓ Logged out. Local session cleared.")
	} else {
		c.io.Println("No active session.")
	}

	return nil
}
