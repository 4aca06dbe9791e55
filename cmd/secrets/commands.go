// cmd/secrets/commands.go
//
// Cobra command tree.  Groups are read and written as RawGroup so a set
// never changes the JSON type of the keys it did not touch.

package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/yanizio/fleetapp/internal/config"
	"github.com/yanizio/fleetapp/internal/logger"
	"github.com/yanizio/fleetapp/internal/secretstore"
)

// groupStore is the slice of *secretstore.Client the commands use.  Groups
// are read and written raw so values keep their JSON types across a set.
type groupStore interface {
	FetchRaw(ctx context.Context, group string) (secretstore.RawGroup, error)
	PutRaw(ctx context.Context, group string, values secretstore.RawGroup) (bool, error)
}

// target pairs a group name with the label operators see.
type target struct {
	group   string
	label   string
	heading string
}

// session is what a command runs against once flags are parsed.
type session struct {
	store      groupStore
	app        target
	deployment target
}

// opener builds a session for the given region override ("" keeps the
// configured region).
type opener func(ctx context.Context, region string) (*session, error)

// openStore reads settings without remote resolution and opens the
// configured backend.
func openStore(ctx context.Context, region string) (*session, error) {
	s, err := config.Loader{Probe: &config.Probe{}}.Load(ctx)
	if err != nil {
		return nil, err
	}
	if region != "" {
		s.AWS.Region = region
	}
	cli, err := config.OpenStore(ctx, s)
	if err != nil {
		return nil, err
	}
	return &session{
		store:      cli,
		app:        target{group: s.Secrets.AppGroup, label: "application", heading: "Application"},
		deployment: target{group: s.Secrets.DeploymentGroup, label: "deployment", heading: "Deployment"},
	}, nil
}

func newRootCommand(open opener) *cobra.Command {
	var (
		region string
		debug  bool
		sess   *session
	)

	root := &cobra.Command{
		Use:           "fleetapp-secrets",
		Short:         "Manage the application and deployment secret groups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if debug {
				if _, err := logger.New(logger.Options{Debug: true, Out: cmd.ErrOrStderr()}); err != nil {
					return err
				}
			}
			var err error
			sess, err = open(cmd.Context(), region)
			return err
		},
	}
	root.PersistentFlags().StringVar(&region, "region", "", "AWS region (default AWS_REGION or us-east-1)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Log backend calls to stderr")

	current := func() *session { return sess }
	root.AddCommand(
		newListCommand(current),
		newGetCommand("get-app-secret", "Get application secret value", current, func(s *session) target { return s.app }),
		newSetCommand("set-app-secret", "Set application secret value", current, func(s *session) target { return s.app }),
		newGetCommand("get-deployment-secret", "Get deployment secret value", current, func(s *session) target { return s.deployment }),
		newSetCommand("set-deployment-secret", "Set deployment secret value", current, func(s *session) target { return s.deployment }),
	)
	return root
}

func newListCommand(current func() *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all secrets and their keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := current()
			out := cmd.OutOrStdout()
			for _, t := range []target{s.app, s.deployment} {
				vals, err := readGroup(cmd.Context(), s.store, t.group)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n=== %s secrets (%s) ===\n", t.heading, t.group)
				for _, k := range slices.Sorted(maps.Keys(vals)) {
					fmt.Fprintf(out, "  - %s\n", k)
				}
			}
			return nil
		},
	}
}

func newGetCommand(use, short string, current func() *session, pick func(*session) target) *cobra.Command {
	return &cobra.Command{
		Use:   use + " KEY",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := current()
			t := pick(s)
			key := args[0]

			vals, err := readGroup(cmd.Context(), s.store, t.group)
			if err != nil {
				return err
			}
			var v string
			if raw, ok := vals[key]; ok {
				if v, err = secretstore.Text(raw); err != nil {
					return fmt.Errorf("key %s: %w", key, err)
				}
			}
			if v != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, v)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key '%s' not found in %s secrets\n", key, t.label)
			return nil
		},
	}
}

func newSetCommand(use, short string, current func() *session, pick func(*session) target) *cobra.Command {
	return &cobra.Command{
		Use:   use + " KEY VALUE",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := current()
			t := pick(s)
			key, value := args[0], args[1]

			vals, err := readGroup(cmd.Context(), s.store, t.group)
			if err != nil {
				return err
			}
			vals[key] = secretstore.StringValue(value)

			created, err := s.store.PutRaw(cmd.Context(), t.group, vals)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "Successfully created secret: %s\n", t.group)
			} else {
				fmt.Fprintf(out, "Successfully updated secret: %s\n", t.group)
			}
			fmt.Fprintf(out, "Set %s in %s secrets\n", key, t.label)
			return nil
		},
	}
}

// readGroup returns a writable copy of group.  A missing group reads as
// empty so set-* can create it.
func readGroup(ctx context.Context, store groupStore, group string) (secretstore.RawGroup, error) {
	vals, err := store.FetchRaw(ctx, group)
	if errors.Is(err, secretstore.ErrNotFound) {
		return secretstore.RawGroup{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(secretstore.RawGroup, len(vals)+1)
	maps.Copy(out, vals)
	return out, nil
}
