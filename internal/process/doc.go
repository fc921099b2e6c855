// Package process terminates browser process trees left behind by a render
// session whose graceful shutdown failed.
package process
