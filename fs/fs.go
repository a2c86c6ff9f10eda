// Package appfs exposes the embedded application assets: SQL migrations
// and email templates.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS
