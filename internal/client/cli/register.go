package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Register ===")
	c.io.Println()

	// Запрашиваем данные аккаунта
	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	fullName, err := c.io.ReadInput("Full name (optional): ")
	if err != nil {
		return fmt.Errorf("failed to read full name: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	c.io.Println()
	c.io.Println("Registering...")

	established, err := c.sessions.Register(ctx, email, username, password, fullName)
	if err != nil {
		return err
	}

	c.io.Println()
	if !established {
		c.io.Println("✓ Account created!")
		c.io.Printf("Check %s for a verification link, then run 'repurpose login'.\n", email)
		return nil
	}

	sess, _ := c.sessions.Current()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("Logged in as: %s\n", sess.User.Email)

	return nil
}
