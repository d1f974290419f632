// Package frontend embeds the single chat page served on GET /.
package frontend

import (
	_ "embed"
)

//go:embed index.html
var indexHTML []byte

// IndexHTML returns the chat page.
func IndexHTML() []byte {
	return indexHTML
}
