// Package generate asks a language model to rebuild a scraped page as a
// single static HTML document.
package generate

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/FranksOps/orchid/internal/llm"
)

// EmptyResponsePage is returned when the model answers with nothing.
const EmptyResponsePage = "<html><body><p>Error: Could not generate HTML. The response from the model was empty.</p></body></html>"

// Generator turns simplified source HTML into a self-contained clone.
type Generator struct {
	llm    llm.Completer
	logger *slog.Logger
}

// New returns a Generator backed by c.
func New(c llm.Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: c, logger: logger}
}

// Generate returns the cloned page for sourceHTML scraped from originalURL.
// It always returns a document: model failures produce an error page
// rather than an error.
func (g *Generator) Generate(ctx context.Context, sourceHTML, originalURL string) string {
	out, err := g.llm.Complete(ctx, buildPrompt(sourceHTML, originalURL))
	if err != nil {
		g.logger.Error("page generation failed", "url", originalURL, "err", err)
		return errorPage(err)
	}

	out = llm.StripCodeFence(out)
	if out == "" {
		g.logger.Warn("page generation returned nothing", "url", originalURL)
		return EmptyResponsePage
	}
	return out
}

func errorPage(err error) string {
	return "<html><body><h1>Error</h1><p>Failed to generate the cloned page. The AI model returned an error.</p><pre>" +
		html.EscapeString(err.Error()) + "</pre></body></html>"
}

// origin returns scheme://host of raw, or raw itself when it does not parse
// as an absolute URL.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

func buildPrompt(sourceHTML, originalURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert web developer tasked with converting a website's source HTML into a single, self-contained file. The original URL of the page was: %s\n\n", originalURL)
	b.WriteString("**GOAL:**\n")
	b.WriteString("Analyze the provided HTML source code and create a new HTML file that visually replicates the original page, ensuring all assets are linked correctly.\n\n")
	b.WriteString("**INSTRUCTIONS:**\n")
	b.WriteString("1.  **Consolidate CSS:** Combine all CSS into a single `<style>` block in the `<head>`.\n")
	fmt.Fprintf(&b, "2.  **Handle Image Paths:** For all `<img>` tags, inspect the `src` attribute. If it is a relative path (e.g., '/images/pic.jpg' or 'assets/logo.png'), you **MUST** convert it into an absolute URL using the original page URL as a base. Root-relative paths resolve against %s. For example, `<img src=\"/images/header.png\">` must become `<img src=\"%s/images/header.png\">`.\n", origin(originalURL), origin(originalURL))
	b.WriteString("3.  **Remove Scripts:** Remove all JavaScript (`<script>` tags) and any elements related to script execution, such as `onclick` attributes or `div`s with classes like `js-tilt-glare`. The output must be purely static HTML and CSS.\n")
	b.WriteString("4.  **Ensure Visibility:** All content should be visible. In the CSS, ensure there are no styles like `opacity: 0` or `visibility: hidden` that would hide text. If you find them, override them to make the content visible (e.g., `opacity: 1 !important;`).\n")
	b.WriteString("5.  **Self-Contained:** The final file must be a single HTML file. Do not embed image data as base64. Link to the absolute URLs as instructed above.\n\n")
	b.WriteString("**SOURCE HTML CONTENT:**\n---\n")
	b.WriteString(sourceHTML)
	b.WriteString("\n---\n\nGenerate only the complete, consolidated HTML code for the new file.\n")
	return b.String()
}
