// Package feed implements the Cursor Feed Pager.
//
// A Pager accumulates pages of list items behind an opaque server cursor. It keeps
// at most one page load in flight, drops items already seen, and discards any page
// that arrives after the criteria changed.
package feed
