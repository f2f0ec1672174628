// Package core defines the shared language of dbrefs.
//
// This package contains:
//   - Object kinds and the type compatibility relation (Kind, UsableIn)
//   - The dependency forest node (RefObject) and its identities
//   - Error taxonomy shared by the loaders (ConfigurationError)
//
// The Golden Rule: pkg/core imports ONLY the standard library and x/text.
// All other packages depend on core, not the reverse.
package core
