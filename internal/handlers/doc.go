// Package handlers implements the HTTP API: authentication, scan
// control and progress, duplicate management, thumbnails, scan root
// administration, library statistics, and health endpoints.
package handlers
