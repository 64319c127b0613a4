package cli

import "testing"

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"suggest", "dnscheck", "server", "worker"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestSuggestCommandRequiresDescription(t *testing.T) {
	cmd := NewSuggestCommand()
	cmd.SetArgs([]string{})
	if err := cmd.Args(cmd, []string{}); err == nil {
		t.Error("expected an error when no description is given")
	}
}

func TestDNSCheckCommandAcceptsOneFQDN(t *testing.T) {
	cmd := NewDNSCheckCommand()
	if err := cmd.Args(cmd, []string{"example.com"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := cmd.Args(cmd, []string{}); err == nil {
		t.Error("expected an error when no fqdn is given")
	}
}
