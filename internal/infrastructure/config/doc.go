// Package config loads service configuration from the environment, an
// optional dotenv file, and an optional YAML or TOML policy file.
//
// Environment variables are read with envconfig; see Config for the names
// and defaults. The policy file (POLICY_FILE) carries the deny-list, the
// embed exceptions, the search template, default shortcuts and the ordered
// relay backends. Any section it omits keeps the built-in default.
package config
