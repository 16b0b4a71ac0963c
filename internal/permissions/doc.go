// Package permissions checks the OS privacy gate in front of screen
// capture.
package permissions
