// Package config loads configuration structs from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env file) and
// github.com/caarlos0/env/v11 (struct tag parsing). Every package in this
// module that needs settings declares its own Config struct with `env` and
// `envDefault` tags; the binary loads them with Load or MustLoad.
//
// Parsed values are cached per type, so repeated loads are cheap and return
// the same snapshot. Reset clears the cache in tests.
package config
