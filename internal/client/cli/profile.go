package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/nleskin/repurpose/pkg/api"
)

func (c *Cli) runProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	name := fs.String("name", "", "New full name")
	picture := fs.String("picture", "", "New profile picture URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !c.sessions.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'repurpose login' first")
	}

	patch := api.UserUpdate{}
	if *name != "" {
		patch.FullName = name
	}
	if *picture != "" {
		patch.ProfilePicture = picture
	}

	// Без флагов просто показываем профиль
	if patch.FullName == nil && patch.ProfilePicture == nil {
		return c.printProfile()
	}

	if err := c.sessions.UpdateUser(ctx, patch); err != nil {
		return err
	}

	c.io.Println("✓ Profile updated.")
	return c.printProfile()
}

func (c *Cli) printProfile() error {
	sess, _ := c.sessions.Current()
	user := sess.User

	c.io.Printf("Email:     %s\n", user.Email)
	c.io.Printf("Username:  %s\n", user.Username)
	if user.FullName != "" {
		c.io.Printf("Full name: %s\n", user.FullName)
	}
	if user.ProfilePicture != "" {
		c.io.Printf("Picture:   %s\n", user.ProfilePicture)
	}

	return nil
}
