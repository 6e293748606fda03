package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nleskin/repurpose/pkg/api"
)

func (c *Cli) runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	text := fs.String("text", "", "Source text")
	textFile := fs.String("text-file", "", "Path to a file with the source text")
	url := fs.String("url", "", "URL of the source article")
	platforms := fs.String("platforms", "", "Comma-separated platforms (thread,post,carousel); empty = all")
	save := fs.Bool("save", false, "Save generated posts to the local library")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !c.sessions.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'repurpose login' first")
	}

	req, sourceRef, err := buildGenerateRequest(*text, *textFile, *url, *platforms)
	if err != nil {
		return err
	}

	c.io.Println("Generating posts... This can take a couple of minutes.")
	c.io.Println()

	resp, err := c.content.Generate(ctx, *req)
	if err != nil {
		return err
	}

	for i, post := range resp.Posts {
		if i > 0 {
			c.io.Println()
		}
		c.printGeneratedPost(post)
	}

	if *save {
		c.io.Println()
		for _, post := range resp.Posts {
			saved, err := c.content.Save(ctx, resp.ID, post, req.Source, sourceRef)
			if err != nil {
				return fmt.Errorf("failed to save %s post: %w", post.Platform, err)
			}
			c.io.Printf("✓ Saved %s post: %s\n", post.Platform, saved.ID)
		}
	}

	return nil
}

// buildGenerateRequest собирает запрос из флагов, проверяя, что источник
// задан ровно один
func buildGenerateRequest(text, textFile, url, platforms string) (*api.GenerateRequest, string, error) {
	sources := 0
	for _, s := range []string{text, textFile, url} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return nil, "", fmt.Errorf("one of --text, --text-file or --url is required")
	}
	if sources > 1 {
		return nil, "", fmt.Errorf("--text, --text-file and --url are mutually exclusive")
	}

	req := &api.GenerateRequest{}
	var sourceRef string

	switch {
	case url != "":
		req.Source = api.SourceURL
		req.URL = url
		sourceRef = url
	case textFile != "":
		content, err := os.ReadFile(textFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read text file: %w", err)
		}
		req.Source = api.SourceText
		req.Content = string(content)
		sourceRef = textFile
	default:
		req.Source = api.SourceText
		req.Content = text
	}

	if platforms != "" {
		for _, p := range strings.Split(platforms, ",") {
			p = strings.TrimSpace(p)
			switch p {
			case api.PlatformThread, api.PlatformPost, api.PlatformCarousel:
				req.Platforms = append(req.Platforms, p)
			default:
				return nil, "", fmt.Errorf("unknown platform: %q", p)
			}
		}
	}

	return req, sourceRef, nil
}

func (c *Cli) printGeneratedPost(post api.GeneratedPost) {
	c.io.Printf("=== %s ===\n", strings.ToUpper(post.Platform))
	if post.Title != "" {
		c.io.Printf("%s\n\n", post.Title)
	}
	if len(post.Slides) > 0 {
		for i, slide := range post.Slides {
			c.io.Printf("--- Slide %d ---\n%s\n", i+1, slide)
		}
		return
	}
	c.io.Println(post.Body)
}
