package scrape

import (
	"reflect"
	"strings"
	"testing"
)

func TestStripBoilerplate(t *testing.T) {
	html := []byte(`<html><head><title>Acme</title><style>body{}</style></head><body>
		<nav><a href="/about">About</a><a href="/pricing">Pricing</a></nav>
		<header>Acme Corp header</header>
		<main>
			<h1>Industrial   Widgets</h1>
			<p>We build widgets for
			    factories.</p>
			<ul><li>Fast delivery</li><li></li></ul>
		</main>
		<footer>Copyright 2026</footer>
		<script>trackVisitor()</script>
	</body></html>`)

	text, err := StripBoilerplate(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(text, "\n")
	want := []string{"Industrial Widgets", "We build widgets for factories.", "Fast delivery"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got lines %q, want %q", lines, want)
	}
	for _, junk := range []string{"header", "Copyright", "trackVisitor", "Pricing"} {
		if strings.Contains(text, junk) {
			t.Errorf("boilerplate %q leaked into extracted text", junk)
		}
	}
}

func TestStripBoilerplate_NoMainRegion(t *testing.T) {
	html := []byte(`<html><body><p>Plain page about plumbing services.</p></body></html>`)
	text, err := StripBoilerplate(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Plain page about plumbing services." {
		t.Errorf("got %q", text)
	}
}

func TestStripBoilerplate_NoBlockStructure(t *testing.T) {
	html := []byte(`<html><body><div>Just a   bare div of text</div></body></html>`)
	text, err := StripBoilerplate(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Just a bare div of text" {
		t.Errorf("got %q", text)
	}
}

func TestExtractLinks(t *testing.T) {
	html := []byte(`<html><body>
		<a href="/about">About</a>
		<a href="https://acme.com/pricing#plans">Pricing</a>
		<a href="https://other.com/x">External</a>
		<a href="contact.html">Contact</a>
	</body></html>`)

	got := ExtractLinks("https://acme.com/home", html)
	want := []string{
		"https://acme.com/about",
		"https://acme.com/pricing",
		"https://other.com/x",
		"https://acme.com/contact.html",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractLinks = %v, want %v", got, want)
	}
}

func TestExtractLinks_BadBase(t *testing.T) {
	if got := ExtractLinks("://bad", []byte(`<a href="/x">x</a>`)); got != nil {
		t.Errorf("expected nil for unparseable base, got %v", got)
	}
}
