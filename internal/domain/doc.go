// Package domain holds the core model types and the interfaces that tie the
// engine's components together. It has no dependencies on other internal
// packages so that every layer can import it.
package domain
