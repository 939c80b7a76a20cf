// Package configs provides embedded configuration templates for kbmcp.
//
// How Configuration Templates Work:
//
// Templates are embedded at build time using Go's //go:embed directive.
// This ensures they are available in ALL distributions:
//   - Source builds (go install)
//   - Binary releases
//   - Homebrew installations
//
// The templates are used by:
//   - cmd/kbmcp/cmd/config.go → `kbmcp config init` creates ~/.config/kbmcp/config.yaml
//   - cmd/kbmcp/cmd/config.go → `kbmcp config init --project` creates .kbmcp.yaml
//
// Template files:
//   - user-config.example.yaml: Machine-specific settings (backend URLs, storage endpoint)
//   - project-config.example.yaml: Per-project settings (knowledge base id, prefixes, search tuning)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/kbmcp/config.yaml)
//  3. Project config (.kbmcp.yaml)
//  4. Environment variables (KBMCP_*)
//
// Credentials are deliberately absent from both templates. Service key
// pairs belong in the environment (KBMCP_QUERY_KEY_ID, KBMCP_QUERY_SECRET,
// KBMCP_INDEXING_KEY_ID, KBMCP_INDEXING_SECRET) where they stay out of
// version control and config dumps.
//
// To modify templates, edit the .yaml files in this directory and rebuild.
// Changes will be embedded in the next build.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by: `kbmcp config init` at ~/.config/kbmcp/config.yaml
// Contains: Machine-specific settings like service URLs and the storage endpoint.
// Use case: Settings that apply to all projects on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Created by: `kbmcp config init --project` at .kbmcp.yaml in the project root
// Contains: Per-project settings like the knowledge base id, bucket prefixes
// and search tuning.
// Use case: Settings that are version-controlled with the project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
