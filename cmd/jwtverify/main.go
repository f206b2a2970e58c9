// Command jwtverify verifies a single JWT against a YAML-described issuer
// configuration and prints the resulting claims (or the verification
// failure) as JSON.
//
// Usage:
//
//	jwtverify -config issuers.yaml -token "$TOKEN"
//	echo "$TOKEN" | jwtverify -config issuers.yaml
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	jwtverify "github.com/chimerakang/jwt-verify-go"
	"github.com/chimerakang/jwt-verify-go/logging"
	"github.com/goccy/go-yaml"
)

// fileConfig mirrors jwtverify.IssuerConfig in a YAML-friendly shape; the
// CLI is the one place in this module that needs to decode issuer config
// from a file instead of building it in Go.
type fileConfig struct {
	Issuers []issuerFileConfig `yaml:"issuers"`
	Timeout time.Duration      `yaml:"timeout"`
}

type issuerFileConfig struct {
	Issuer                 string   `yaml:"issuer"`
	JwksURI                string   `yaml:"jwksUri"`
	Audience               []string `yaml:"audience"`
	ClientID               []string `yaml:"clientId"`
	GraceSeconds           int64    `yaml:"graceSeconds"`
	IsCognito              bool     `yaml:"isCognito"`
	TokenUse               []string `yaml:"tokenUse"`
	Scopes                 []string `yaml:"scopes"`
	IsALB                  bool     `yaml:"isAlb"`
	AlbArn                 []string `yaml:"albArn"`
	AlbClientID            []string `yaml:"albClientId"`
	JwtSignatureAlgorithms []string `yaml:"jwtSignatureAlgorithms"`
}

func (f issuerFileConfig) toIssuerConfig() jwtverify.IssuerConfig {
	cfg := jwtverify.IssuerConfig{
		Issuer:                 f.Issuer,
		JwksURI:                f.JwksURI,
		Audience:               f.Audience,
		ClientID:               f.ClientID,
		GraceSeconds:           f.GraceSeconds,
		IsCognito:              f.IsCognito,
		TokenUse:               f.TokenUse,
		Scopes:                 f.Scopes,
		IsALB:                  f.IsALB,
		JwtSignatureAlgorithms: f.JwtSignatureAlgorithms,
	}
	if f.AlbArn != nil {
		cfg.AlbArn = f.AlbArn
	}
	if f.AlbClientID != nil {
		cfg.AlbClientID = f.AlbClientID
	}
	return cfg
}

func main() {
	configPath := flag.String("config", "", "path to a YAML issuer configuration file (required)")
	token := flag.String("token", "", "JWT to verify; if omitted, read from stdin")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	logging.Init(*logLevel, "text")

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "jwtverify: -config is required")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwtverify: reading config: %v\n", err)
		os.Exit(2)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		fmt.Fprintf(os.Stderr, "jwtverify: parsing config: %v\n", err)
		os.Exit(2)
	}
	if len(fc.Issuers) == 0 {
		fmt.Fprintln(os.Stderr, "jwtverify: config declares no issuers")
		os.Exit(2)
	}

	issuers := make([]jwtverify.IssuerConfig, len(fc.Issuers))
	for i, f := range fc.Issuers {
		issuers[i] = f.toIssuerConfig()
	}

	tok := *token
	if tok == "" {
		tok, err = readToken(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jwtverify: reading token from stdin: %v\n", err)
			os.Exit(2)
		}
	}

	timeout := fc.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	verifier := jwtverify.New(issuers)
	claims, err := verifier.Verify(ctx, tok, nil)
	if err != nil {
		printResult(false, nil, err)
		os.Exit(1)
	}
	printResult(true, claims, nil)
}

func readToken(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no token provided")
	}
	return scanner.Text(), nil
}

type result struct {
	Valid  bool           `json:"valid"`
	Claims map[string]any `json:"claims,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func printResult(valid bool, claims map[string]any, verifyErr error) {
	r := result{Valid: valid, Claims: claims}
	if verifyErr != nil {
		r.Error = verifyErr.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(r)
}
