package cli

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (c *Cli) runHistory(ctx context.Context) error {
	if !c.sessions.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'repurpose login' first")
	}

	history, err := c.content.History(ctx)
	if err != nil {
		return err
	}

	if len(history.Entries) == 0 {
		c.io.Println("No generations yet.")
		return nil
	}

	c.io.Printf("=== Generation History (%d total) ===\n", history.Total)
	c.io.Println()

	for _, entry := range history.Entries {
		ref := entry.SourceRef
		if ref == "" {
			ref = entry.Source
		}
		c.io.Printf("%s  %s  [%s]  %s\n",
			entry.ID,
			entry.CreatedAt.Format(time.RFC3339),
			strings.Join(entry.Platforms, ","),
			ref,
		)
	}

	return nil
}

func (c *Cli) runUsage(ctx context.Context) error {
	if !c.sessions.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'repurpose login' first")
	}

	usage, err := c.content.Usage(ctx)
	if err != nil {
		return err
	}

	c.io.Println("=== Usage Quota ===")
	c.io.Println()
	c.io.Printf("Used:      %d/%d\n", usage.GenerationsUsed, usage.GenerationsMax)
	c.io.Printf("Remaining: %d\n", usage.Remaining())
	if !usage.PeriodEndsAt.IsZero() {
		c.io.Printf("Resets:    %s\n", usage.PeriodEndsAt.Format(time.RFC3339))
	}

	return nil
}
