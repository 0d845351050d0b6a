// Package platform holds the board glue that depends on the build target.
package platform
