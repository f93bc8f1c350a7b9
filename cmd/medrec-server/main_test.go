package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func findSubcommand(t *testing.T, parent *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("subcommand %q not found under %q", name, parent.Name())
	return nil
}

func TestMigrateCommandTree(t *testing.T) {
	cmd := migrateCmd()
	if cmd.Use != "migrate" {
		t.Errorf("Use = %q, want migrate", cmd.Use)
	}

	up := findSubcommand(t, cmd, "up")
	dir, err := up.Flags().GetString("dir")
	if err != nil {
		t.Fatalf("up --dir flag: %v", err)
	}
	if dir != "./migrations" {
		t.Errorf("up --dir default = %q, want ./migrations", dir)
	}

	status := findSubcommand(t, cmd, "status")
	dir, err = status.Flags().GetString("dir")
	if err != nil {
		t.Fatalf("status --dir flag: %v", err)
	}
	if dir != "./migrations" {
		t.Errorf("status --dir default = %q, want ./migrations", dir)
	}
}

func TestUserCreateFlags(t *testing.T) {
	cmd := userCmd()
	create := findSubcommand(t, cmd, "create")

	for _, name := range []string{"username", "password", "roles"} {
		if create.Flags().Lookup(name) == nil {
			t.Errorf("create is missing --%s", name)
		}
	}

	roles, err := create.Flags().GetString("roles")
	if err != nil {
		t.Fatalf("create --roles flag: %v", err)
	}
	if roles != "admin" {
		t.Errorf("create --roles default = %q, want admin", roles)
	}
}

func TestUserCreateRequiresCredentials(t *testing.T) {
	cmd := userCmd()
	create := findSubcommand(t, cmd, "create")
	create.SilenceUsage = true
	create.SilenceErrors = true

	if err := create.RunE(create, nil); err == nil {
		t.Error("expected error when --username and --password are absent")
	}
}

func TestServeCommand(t *testing.T) {
	cmd := serveCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want serve", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("serve has no RunE")
	}
}
