// Package file loads the exporter's configuration from the filesystem: the
// TOML settings file, the ISSN allow-list and optional PID list files.
//
// Settings resolve in three layers: built-in defaults, then the TOML file,
// then environment variables (DOAJ_API_URL, DOAJ_API_KEY, ARTICLEMETA_DOMAIN).
// A missing settings file is not an error; a malformed one is fatal.
package file
