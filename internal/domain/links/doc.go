// Package links detects clickable references in rendered terminal lines
// and turns clicks into navigation.
//
// An Engine runs an ordered list of adapters (URL, internal URI, wikilink,
// email, compiler and stack-trace positions, git status, bare paths) over
// one line, then keeps a non-overlapping subset sorted by start offset. At
// equal offsets the adapter listed first wins.
//
// A Resolver maps a match to an Action: URLs and e-mail open externally,
// internal URIs are handed off verbatim, and file paths are looked up in
// the content store (literal path, then with ".md", then by name) before
// falling back to the OS handler.
//
// Example:
//
//	engine := links.NewEngine(nil)
//	for _, m := range engine.FindLinks(`at foo (/Users/me/app.js:10:3)`) {
//		action, _ := activator.Activate(ctx, m, cwd)
//		_ = action
//	}
package links
