// Package urls holds the documentation URLs printed by the CLI in hints and
// help texts, so they can be updated in a single place.
//
// Usage:
//
//	import "github.com/muurk/fbx/internal/urls"
//
//	fmt.Printf("See %s\n", urls.Login)
package urls
