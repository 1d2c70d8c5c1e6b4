// Package config loads, normalizes, and validates shipconf configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours secrets from the environment or a
// dotenv file (SHIPCONF_API_USER, SHIPCONF_API_PASSWORD, SHIPCONF_BASE_URL).
// The Config type is loaded once at startup and passed explicitly to the
// session client, resolver, archiver and batch driver; nothing reads it from a
// global.
package config
