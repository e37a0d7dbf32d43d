// Package startup loads configuration from the environment, validates
// the directories the service depends on, and prints the structured
// startup and shutdown banners.
package startup
