package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	if err := c.sessions.Login(ctx, email, password); err != nil {
		return err
	}

	sess, _ := c.sessions.Current()

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Logged in as: %s\n", sess.User.Email)
	c.io.Println()
	c.io.Println("Your session has been saved securely.")

	return nil
}

// runGoogleLogin обменивает Google ID token на сессию.
// Токен приходит аргументом: его выдает браузерный OAuth flow.
func (c *Cli) runGoogleLogin(ctx context.Context, args []string) error {
	if len(args) < 1 || args[0] == "" {
		return fmt.Errorf("usage: repurpose google-login <id-token>")
	}

	c.io.Println("Authenticating with Google...")

	if err := c.sessions.LoginWithGoogle(ctx, args[0]); err != nil {
		return err
	}

	sess, _ := c.sessions.Current()

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Logged in as: %s\n", sess.User.Email)

	return nil
}
