// Package browse abstracts the browser session the discovery engine drives.
// The engine only needs to navigate, scroll, read one text node and collect
// hrefs; anything implementing Session can stand in, including in-memory
// fakes in tests.
package browse

import "context"

// Session is the minimal browsing surface needed to walk a dynamically
// loaded profile listing.
type Session interface {
	// Open navigates to url and waits for the initial page load.
	Open(ctx context.Context, url string) error

	// ScrollToBottom scrolls the document to its current full height.
	ScrollToBottom(ctx context.Context) error

	// ReadText returns the text content of the first element matching selector.
	ReadText(ctx context.Context, selector string) (string, error)

	// FindLinks returns the href of every element currently matching selector,
	// in rendered order. Elements without an href are omitted.
	FindLinks(ctx context.Context, selector string) ([]string, error)

	// Close tears the session down.
	Close() error
}
