// Package config handles configuration loading and management for end2.
//
// It provides functionality for:
//   - Loading the rc file from .end2rc.yaml, end2.yaml or .end2rc.json
//   - Validating rc documents against an embedded JSON schema
//   - Default settings and merging of CLI overrides
//   - Suite alias expansion and disabled suite filtering
package config
