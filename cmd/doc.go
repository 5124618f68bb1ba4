// Package cmd holds the namereg commands.
//
// # Commands
//
// nameserver: Runs the registry. Users can be seeded from the config file,
// and a bootstrap user can be generated at startup.
//
//	go run ./cmd/nameserver --addr=:8888 --admin-token=admin:secret
//	go run ./cmd/nameserver --config=nameserver.toml
//
// nameclient: Generates keys, registers users, publishes documents and
// reads entries.
//
//	go run ./cmd/nameclient keygen
//	go run ./cmd/nameclient --user=icefox --key=$KEY publish conversation "hello"
//	go run ./cmd/nameclient fetch conversation
//
// # Configuration
//
// nameserver reads YAML or TOML, chosen by file extension. Command-line
// flags override config file values.
//
//	http_addr: ":8888"
//	metrics_addr: ":9090"
//	admin_token: "admin:secret"
//	log:
//	  level: info
//	users:
//	  alice: "<base64 public key>"
//	bootstrap_user: icefox
package cmd
