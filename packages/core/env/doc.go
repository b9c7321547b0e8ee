// Package env loads .env files into the process environment so that hooks,
// rc file webhooks and test fixtures see the same variables.
package env
