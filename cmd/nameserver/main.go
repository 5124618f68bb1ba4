// Command nameserver runs the name registry.
//
// # Configuration File
//
// YAML (.yaml, .yml) or TOML (.toml), chosen by extension:
//
//	http_addr: ":8888"
//	metrics_addr: ":9090"
//	admin_token: "admin:secret"
//	cors_origins: ["https://reader.example"]
//	log:
//	  level: info
//	  json: false
//	users:
//	  alice: "t1TsGjWws0c0Vwz50sjKoDAERBnKPidKC4Q0NHE4/co="
//	bootstrap_user: icefox
//
// The bootstrap user gets a generated keypair on every start; its private
// key is printed once and never stored.
//
// # Endpoints
//
// Public:
//   - GET  /id/{username}
//   - GET  /name/{name}
//   - POST /name/{name}
//
// Admin (served only when admin_token is set, basic auth):
//   - POST /admin/id/{username}
//   - GET  /admin/users, /admin/names, /admin/stats
//
// # Usage
//
//	go run ./cmd/nameserver --config=nameserver.yaml
//	go run ./cmd/nameserver --addr=:8888 --bootstrap-user=icefox
//	go run ./cmd/nameserver --write-config=nameserver.toml
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/flashbots/namereg/api/httpserver"
	"github.com/flashbots/namereg/cmd/common"
	"github.com/flashbots/namereg/registry"
	"github.com/flashbots/namereg/services"
)

type flagValues struct {
	addr          string
	metricsAddr   string
	adminToken    string
	bootstrapUser string
	logLevel      string
	logJSON       bool
	pprof         bool
	cors          string
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML or TOML config file")
		writeConfig = flag.String("write-config", "", "Write the effective config to this path and exit")
		fv          flagValues
	)
	flag.StringVar(&fv.addr, "addr", "", "HTTP listen address")
	flag.StringVar(&fv.metricsAddr, "metrics-addr", "", "Metrics listen address (disabled if empty)")
	flag.StringVar(&fv.adminToken, "admin-token", "", "Basic auth token for admin routes (user:pass)")
	flag.StringVar(&fv.bootstrapUser, "bootstrap-user", "", "Generate and register a keypair for this user at startup")
	flag.StringVar(&fv.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&fv.logJSON, "log-json", false, "Log in JSON format")
	flag.BoolVar(&fv.pprof, "pprof", false, "Enable pprof under /debug")
	flag.StringVar(&fv.cors, "cors-origins", "", "Comma-separated origins allowed to read the API")
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlagOverrides(cfg, fv, set)

	if *writeConfig != "" {
		if err := common.SaveConfig(*writeConfig, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", *writeConfig)
		return
	}

	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

// applyFlagOverrides copies explicitly set flags over the file values.
func applyFlagOverrides(cfg *common.Config, fv flagValues, set map[string]bool) {
	if set["addr"] {
		cfg.HTTPAddr = fv.addr
	}
	if set["metrics-addr"] {
		cfg.MetricsAddr = fv.metricsAddr
	}
	if set["admin-token"] {
		cfg.AdminToken = fv.adminToken
	}
	if set["bootstrap-user"] {
		cfg.BootstrapUser = fv.bootstrapUser
	}
	if set["log-level"] {
		cfg.Log.Level = fv.logLevel
	}
	if set["log-json"] {
		cfg.Log.JSON = fv.logJSON
	}
	if set["pprof"] {
		cfg.EnablePprof = fv.pprof
	}
	if set["cors-origins"] {
		cfg.CORSOrigins = splitList(fv.cors)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setup builds the registry and server from cfg. The bootstrap user's
// private key is written to out.
func setup(cfg *common.Config, out io.Writer) (*httpserver.BaseServer, *registry.Registry, error) {
	log, err := common.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New()
	if err := common.SeedRegistry(reg, cfg.Users); err != nil {
		return nil, nil, fmt.Errorf("seeding users: %w", err)
	}

	if cfg.BootstrapUser != "" {
		if _, exists := cfg.Users[cfg.BootstrapUser]; exists {
			log.Info("Bootstrap user already configured", "user", cfg.BootstrapUser)
		} else {
			privKey, err := common.Bootstrap(reg, cfg.BootstrapUser)
			if err != nil {
				return nil, nil, fmt.Errorf("bootstrapping %s: %w", cfg.BootstrapUser, err)
			}
			fmt.Fprintf(out, "Generated user %s\nPrivate key (shown once): %s\n", cfg.BootstrapUser, privKey)
		}
	}

	nameService := services.NewNameService(reg, &services.NameServiceConfig{
		Log:          log,
		AdminToken:   cfg.AdminToken,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		CORSOrigins:              cfg.CORSOrigins,
		Log:                      log,
		DrainDuration:            cfg.DrainDuration,
		GracefulShutdownDuration: cfg.ShutdownTimeout,
	}, nameService)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Registry initialized", "users", reg.Stats().Users)
	return srv, reg, nil
}

func run(cfg *common.Config, out io.Writer) error {
	srv, _, err := setup(cfg, out)
	if err != nil {
		return err
	}

	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Fprintln(out, "Shutting down nameserver...")
	srv.Shutdown()
	return nil
}
