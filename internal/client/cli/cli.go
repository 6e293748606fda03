// Package cli реализует команды консольного клиента Repurpose
package cli

import (
	"context"
	"fmt"

	"github.com/nleskin/repurpose/internal/client/content"
	"github.com/nleskin/repurpose/internal/client/iocli"
	"github.com/nleskin/repurpose/internal/client/session"
)

type Cli struct {
	sessions *session.Manager
	content  *content.Service
	io       iocli.IO
}

func New(sessions *session.Manager, contentService *content.Service, io iocli.IO) *Cli {
	return &Cli{
		sessions: sessions,
		content:  contentService,
		io:       io,
	}
}

// Run выполняет одну команду клиента
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "google-login":
		return c.runGoogleLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "refresh":
		return c.runRefresh(ctx)
	case "profile":
		return c.runProfile(ctx, args)
	case "generate":
		return c.runGenerate(ctx, args)
	case "history":
		return c.runHistory(ctx)
	case "usage":
		return c.runUsage(ctx)
	case "saved":
		return c.runSaved(ctx, args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func PrintUsage(io iocli.IO) {
	io.Println("Repurpose Client")
	io.Println()
	io.Println("Usage:")
	io.Println("  repurpose [OPTIONS] COMMAND")
	io.Println()
	io.Println("Options:")
	io.Println("  --version          Show version information")
	io.Println("  --server URL       Server URL (default: https://api.repurpose.app)")
	io.Println("  --config PATH      Path to data directory (default: OS config dir)")
	io.Println()
	io.Println("Commands:")
	io.Println("  register                    Register new account")
	io.Println("  login                       Login with email and password")
	io.Println("  google-login <id-token>     Login with a Google ID token")
	io.Println("  logout                      Logout and clear the local session")
	io.Println("  status                      Show session status and usage quota")
	io.Println("  refresh                     Refresh the access token")
	io.Println("  profile [flags]             Show or update the profile")
	io.Println("  generate [flags]            Generate posts from text or URL")
	io.Println("  history                     Show generation history")
	io.Println("  usage                       Show usage quota")
	io.Println("  saved list                  List saved posts")
	io.Println("  saved show <id>             Show a saved post")
	io.Println("  saved export <id> <path>    Export a saved post to a file")
	io.Println("  saved delete <id>           Delete a saved post")
	io.Println()
	io.Println("Examples:")
	io.Println("  repurpose login")
	io.Println("  repurpose generate --url https://example.com/article")
	io.Println("  repurpose generate --text-file article.txt --platforms thread,carousel")
	io.Println("  repurpose saved export b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 post.md")
	io.Println("  repurpose --server https://staging.repurpose.app status")
}
