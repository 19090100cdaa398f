// Package content embeds the authored documents that make up the site.
package content

import "embed"

// Identities of the documents shipped with the site.
const (
	Resume            = "resume"
	PathfindingPost   = "pathfinding-visualizer"
	ErrorHandlingPost = "rust-error-handling"
)

// FS holds every top-level Markdown document.
//
//go:embed *.md
var FS embed.FS
