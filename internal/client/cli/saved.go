package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/nleskin/repurpose/internal/client/content"
)

func (c *Cli) runSaved(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: repurpose saved <list|show|export|delete> [args]")
	}

	if !c.sessions.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'repurpose login' first")
	}

	switch args[0] {
	case "list":
		return c.runSavedList(ctx)
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: repurpose saved show <id>")
		}
		return c.runSavedShow(ctx, args[1])
	case "export":
		if len(args) < 3 {
			return fmt.Errorf("usage: repurpose saved export <id> <path>")
		}
		return c.runSavedExport(ctx, args[1], args[2])
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: repurpose saved delete <id>")
		}
		return c.runSavedDelete(ctx, args[1])
	default:
		return fmt.Errorf("unknown saved subcommand: %s", args[0])
	}
}

func (c *Cli) runSavedList(ctx context.Context) error {
	posts, err := c.content.List(ctx)
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		c.io.Println("Library is empty. Use 'repurpose generate --save' to add posts.")
		return nil
	}

	c.io.Printf("=== Saved Posts (%d) ===\n", len(posts))
	c.io.Println()

	for _, post := range posts {
		title := post.Title
		if title == "" {
			title = firstLine(post.Body)
		}
		c.io.Printf("%s  %s  [%s]  %s\n",
			post.ID,
			post.CreatedAt.Format(time.RFC3339),
			post.Platform,
			title,
		)
	}

	return nil
}

func (c *Cli) runSavedShow(ctx context.Context, id string) error {
	post, err := c.content.Get(ctx, id)
	if err != nil {
		return err
	}

	tmpl, err := template.New("saved").Parse(savedPostTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return tmpl.Execute(c.io, post)
}

func (c *Cli) runSavedExport(ctx context.Context, id, path string) error {
	// Формат выводится из расширения файла
	format := content.ExportMarkdown
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = content.ExportJSON
	}

	if err := c.content.Export(ctx, id, path, format); err != nil {
		return err
	}

	c.io.Printf("✓ Exported to %s\n", path)
	return nil
}

func (c *Cli) runSavedDelete(ctx context.Context, id string) error {
	if err := c.content.Delete(ctx, id); err != nil {
		return err
	}

	c.io.Printf("✓ Deleted %s\n", id)
	return nil
}

// firstLine обрезает тело до первой строки для компактного списка.
// Обрезка по рунам: заголовок не должен рваться посреди multi-byte символа.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const maxLen = 60
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "…"
	}
	return s
}
