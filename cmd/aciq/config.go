package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/term"
)

// config is the aciq configuration file:
//
//	endpoints = ["https://apic1.example.com/", "https://apic2.example.com/"]
//	username = "admin"
//	# password is prompted for when omitted
//	password = ""
//	timeout_seconds = 30
//	insecure = false
type config struct {
	Endpoints      []string `koanf:"endpoints"`
	Username       string   `koanf:"username"`
	Password       string   `koanf:"password"`
	TimeoutSeconds int      `koanf:"timeout_seconds"`
	Insecure       bool     `koanf:"insecure"`
}

func loadConfig(path string) (*config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "load configuration file %s", path)
	}

	cfg := &config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrapf(err, "parse configuration file %s", path)
	}

	if len(cfg.Endpoints) == 0 {
		return nil, errors.Newf("configuration file %s names no endpoints", path)
	}
	if cfg.Username == "" {
		return nil, errors.Newf("configuration file %s names no username", path)
	}
	return cfg, nil
}

func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "password for %s: ", username)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return string(password), nil
}
