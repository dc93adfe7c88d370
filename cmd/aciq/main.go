// Command aciq is a small client for querying and modifying managed
// objects on a fabric controller cluster. Endpoints and credentials come
// from a TOML configuration file; see config.go.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	aci "github.com/RavuAlHemio/go-aci"
)

var (
	configPath  string
	verbose     bool
	queryTarget string
	queryFilter string
)

var rootCmd = &cobra.Command{
	Use:           "aciq",
	Short:         "Query and modify managed objects on a fabric controller",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&queryTarget, "target", "subtree", "query target scope (self, children or subtree)")
	cmd.Flags().StringVar(&queryFilter, "filter", "", "query target filter, passed to the controller verbatim")
}

func querySettings() (aci.QuerySettings, error) {
	settings := aci.NewQuerySettings()
	switch queryTarget {
	case "self":
		settings = settings.QueryTarget(aci.QueryTargetSelf)
	case "children":
		settings = settings.QueryTarget(aci.QueryTargetChildren)
	case "subtree":
		settings = settings.QueryTarget(aci.QueryTargetSubtree)
	default:
		return settings, errors.Newf("unknown query target %q", queryTarget)
	}
	if queryFilter != "" {
		settings = settings.QueryTargetFilter(queryFilter)
	}
	return settings, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "aciq.toml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	classCmd := &cobra.Command{
		Use:   "class <class-name>",
		Short: "List the instances of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := querySettings()
			if err != nil {
				return err
			}
			return withConnection(cmd.Context(), func(ctx context.Context, conn *aci.MultiConnection) error {
				objs, err := conn.GetInstances(ctx, args[0], settings)
				if err != nil {
					return err
				}
				return printObjects(objs)
			})
		},
	}
	addQueryFlags(classCmd)

	moCmd := &cobra.Command{
		Use:   "mo <dn>",
		Short: "Show the managed object with the given DN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := querySettings()
			if err != nil {
				return err
			}
			return withConnection(cmd.Context(), func(ctx context.Context, conn *aci.MultiConnection) error {
				objs, err := conn.GetObjects(ctx, args[0], settings)
				if err != nil {
					return err
				}
				return printObjects(objs)
			})
		},
	}
	addQueryFlags(moCmd)

	postCmd := &cobra.Command{
		Use:   "post <file>",
		Short: "Create or modify the managed object described by a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read object file")
			}
			var obj aci.Object
			if err := json.Unmarshal(data, &obj); err != nil {
				return errors.Wrapf(err, "parse %s", args[0])
			}
			return withConnection(cmd.Context(), func(ctx context.Context, conn *aci.MultiConnection) error {
				objs, err := conn.PostObject(ctx, &obj)
				if err != nil {
					return err
				}
				return printObjects(objs)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <dn>",
		Short: "Delete the managed object with the given DN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd.Context(), func(ctx context.Context, conn *aci.MultiConnection) error {
				return conn.DeleteObject(ctx, args[0])
			})
		},
	}

	rootCmd.AddCommand(classCmd)
	rootCmd.AddCommand(moCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(deleteCmd)
}

// withConnection builds a multi-endpoint connection from the
// configuration file and hands it to fn.
func withConnection(ctx context.Context, fn func(context.Context, *aci.MultiConnection) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	password := cfg.Password
	if password == "" {
		password, err = promptPassword(cfg.Username)
		if err != nil {
			return err
		}
	}

	uris := make([]*url.URL, 0, len(cfg.Endpoints))
	for _, endpoint := range cfg.Endpoints {
		u, err := url.Parse(endpoint)
		if err != nil {
			return errors.Wrapf(err, "invalid endpoint %s", endpoint)
		}
		uris = append(uris, u)
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion:         tls.VersionTLS12,
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	conn, err := aci.NewMultiConnection(ctx, aci.MultiConnectionConfig{
		BaseURIs:      uris,
		Authenticator: aci.PasswordAuthenticator{Username: cfg.Username, Password: password},
		HTTPClient:    client,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		Log:           &log.Logger,
	})
	if err != nil {
		return err
	}
	return fn(ctx, conn)
}

func printObjects(objs []*aci.Object) error {
	data, err := json.MarshalIndent(objs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
