// Command admintoken mints a bearer token for the admin API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"realestate-payments/internal/config"
	"realestate-payments/internal/infra/api"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	subject := flag.String("sub", "ops", "operator name recorded in the token")
	ttl := flag.Duration("ttl", 0, "token lifetime (default admin.token_ttl)")
	flag.Parse()

	cfg, err := config.ReadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(cfg.Admin.JWTSecret) < 32 {
		fmt.Fprintln(os.Stderr, "admin.jwt_secret (or ADMIN_JWT_SECRET) must be set to at least 32 bytes")
		os.Exit(1)
	}
	life := cfg.Admin.TokenTTL
	if *ttl > 0 {
		life = *ttl
	}

	tok, err := api.NewAuthManager(cfg.Admin.JWTSecret, life).Issue(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(life).Format(time.RFC3339))
}
