// Package mediatypes defines the set of recognized photo file extensions
// and their MIME types.
//
// Discovery filters the directory walk to these extensions; the
// metadata and thumbnail registries key their format dispatch on them.
package mediatypes
