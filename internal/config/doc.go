// Package config resolves the chat client's settings. Values are layered
// with increasing priority: built-in defaults, an optional YAML file, then
// environment variables. Credentials are usually supplied through the
// environment (or a .env file loaded by the commands).
package config
