package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"monthly/internal/core"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "monthly.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("EXPORT_INTERVAL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("monthly %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String()
}

func runCLIErr(t *testing.T, args ...string) error {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	if err == nil {
		t.Fatalf("monthly %s: expected error, got output %q", strings.Join(args, " "), stdout.String())
	}
	return err
}

func listPayments(t *testing.T, args ...string) []core.Payment {
	t.Helper()
	out := runCLI(t, append([]string{"payments", "list", "--json"}, args...)...)
	var payments []core.Payment
	if err := json.Unmarshal([]byte(out), &payments); err != nil {
		t.Fatalf("decode payments %q: %v", out, err)
	}
	return payments
}

func findSub(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd(&app{})

	want := map[string][]string{
		"payments": {"add", "list", "update", "delete", "complete", "reset", "reorder", "total", "groups"},
		"grouping": {"toggle"},
		"projects": {"add", "list", "show", "update", "delete", "item", "to-payments"},
		"theme":    {"list", "get", "set"},
		"version":  nil,
	}
	for parent, subs := range want {
		cmd := findSub(root, parent)
		if cmd == nil {
			t.Errorf("missing command %q", parent)
			continue
		}
		for _, sub := range subs {
			if findSub(cmd, sub) == nil {
				t.Errorf("missing command %q %q", parent, sub)
			}
		}
	}

	item := findSub(findSub(root, "projects"), "item")
	for _, sub := range []string{"add", "update", "delete", "select", "complete", "select-all"} {
		if findSub(item, sub) == nil {
			t.Errorf("missing command projects item %q", sub)
		}
	}

	add := findSub(findSub(root, "payments"), "add")
	if flag := add.Flag("type"); flag == nil || flag.DefValue != "recurring" {
		t.Errorf("payments add --type should default to recurring, got %+v", flag)
	}
}

func TestVersionSkipsStore(t *testing.T) {
	t.Setenv("DATA_BACKEND", "nope")
	if out := runCLI(t, "version"); out != "monthly dev\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestPaymentsLifecycle(t *testing.T) {
	setupEnv(t)

	out := runCLI(t, "payments", "add", "Rent", "950", "--due", "2024-01-31")
	if !strings.Contains(out, "Added Rent") || !strings.Contains(out, "in Household") {
		t.Errorf("unexpected add output %q", out)
	}
	runCLI(t, "payments", "add", "Phone", "19,99", "--type", "one-off", "--group", "Utilities", "--due", "2024-01-10", "--note", "prepaid")

	payments := listPayments(t)
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	rent, phone := payments[0], payments[1]
	if phone.Amount.Cents != 1999 || phone.Group != "Utilities" || phone.Type != core.OneOff || phone.Note != "prepaid" {
		t.Errorf("unexpected phone payment %+v", phone)
	}

	if out := runCLI(t, "payments", "total"); !strings.Contains(out, "969.99") {
		t.Errorf("expected total 969.99, got %q", out)
	}
	if got := listPayments(t, "--filter", "one-off"); len(got) != 1 || got[0].ID != phone.ID {
		t.Errorf("expected only the phone payment, got %+v", got)
	}

	if out := runCLI(t, "payments", "complete", rent.ID); !strings.Contains(out, "Marked Rent completed") {
		t.Errorf("unexpected complete output %q", out)
	}
	if out := runCLI(t, "payments", "total"); !strings.Contains(out, "19.99") {
		t.Errorf("expected total 19.99 after completing rent, got %q", out)
	}
	if got := listPayments(t); len(got) != 1 {
		t.Errorf("completed payments should be hidden by default, got %d", len(got))
	}

	if out := runCLI(t, "payments", "reset"); !strings.Contains(out, "Rolled over 1 recurring payments") {
		t.Errorf("unexpected reset output %q", out)
	}
	payments = listPayments(t, "--completed")
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments after reset, got %d", len(payments))
	}
	for _, p := range payments {
		switch p.ID {
		case rent.ID:
			if p.IsCompleted || p.DueDate.String() != "2024-02-29" {
				t.Errorf("rent should be active and due 2024-02-29, got %+v", p)
			}
		case phone.ID:
			if p.DueDate.String() != "2024-01-10" {
				t.Errorf("one-off payment should keep its due date, got %s", p.DueDate)
			}
		}
	}

	runCLI(t, "payments", "update", phone.ID, "--amount", "25", "--name", "Mobile")
	p := listPayments(t, "--filter", "one-off")[0]
	if p.Name != "Mobile" || p.Amount.Cents != 2500 || p.Group != "Utilities" {
		t.Errorf("unexpected updated payment %+v", p)
	}

	runCLI(t, "payments", "delete", phone.ID)
	if got := listPayments(t); len(got) != 1 || got[0].ID != rent.ID {
		t.Errorf("expected only rent after delete, got %+v", got)
	}
}

func TestPaymentsErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "invalid amount", args: []string{"payments", "add", "Rent", "abc"}, wantErr: "invalid amount"},
		{name: "invalid type", args: []string{"payments", "add", "Rent", "10", "--type", "weekly"}, wantErr: "invalid payment type"},
		{name: "invalid due date", args: []string{"payments", "add", "Rent", "10", "--due", "31/01/2024"}, wantErr: "invalid date"},
		{name: "empty name", args: []string{"payments", "add", " ", "10"}, wantErr: "empty name"},
		{name: "unknown delete", args: []string{"payments", "delete", "missing"}, wantErr: "not found"},
		{name: "unknown complete", args: []string{"payments", "complete", "missing"}, wantErr: "not found"},
		{name: "unknown update", args: []string{"payments", "update", "missing", "--note", "x"}, wantErr: "not found"},
		{name: "reorder out of range", args: []string{"payments", "reorder", "3", "0"}, wantErr: "no active payment at position 3"},
		{name: "invalid filter", args: []string{"payments", "groups", "--filter", "weekly"}, wantErr: "unknown payment filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCLIErr(t, tt.args...)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPaymentsReorderAndGroups(t *testing.T) {
	setupEnv(t)

	runCLI(t, "payments", "add", "Rent", "900", "--due", "2024-03-01")
	runCLI(t, "payments", "add", "Power", "80", "--due", "2024-03-05")
	runCLI(t, "payments", "add", "Music", "9.99", "--due", "2024-03-09", "--group", "Subscriptions")

	runCLI(t, "payments", "reorder", "1", "0", "--group", "Household")
	payments := listPayments(t)
	if payments[0].Name != "Power" || payments[1].Name != "Rent" || payments[2].Name != "Music" {
		t.Errorf("unexpected order after reorder: %s, %s, %s", payments[0].Name, payments[1].Name, payments[2].Name)
	}

	out := runCLI(t, "payments", "groups", "--json")
	var groups []core.PaymentGroup
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatalf("decode groups: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "Household" || groups[0].Total.Cents != 98000 {
		t.Fatalf("unexpected groups %+v", groups)
	}

	if out := runCLI(t, "payments", "groups", "--names"); out != "Household\nSubscriptions\n" {
		t.Errorf("unexpected group names %q", out)
	}

	if out := runCLI(t, "grouping", "toggle"); out != "Grouping disabled\n" {
		t.Errorf("unexpected toggle output %q", out)
	}
	if out := runCLI(t, "grouping"); out != "Grouping disabled\n" {
		t.Errorf("grouping preference should persist, got %q", out)
	}
	out = runCLI(t, "payments", "groups", "--json")
	groups = nil
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatalf("decode groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != core.AllPaymentsGroup || len(groups[0].Payments) != 3 {
		t.Errorf("expected a single %q group, got %+v", core.AllPaymentsGroup, groups)
	}
}

func TestProjectsToPayments(t *testing.T) {
	setupEnv(t)

	out := runCLI(t, "projects", "add", "Kitchen", "--description", "spring refit",
		"--item", "Paint:45", "--item", "Tiles:120:grey", "--json")
	var project core.Project
	if err := json.Unmarshal([]byte(out), &project); err != nil {
		t.Fatalf("decode project %q: %v", out, err)
	}
	if len(project.Items) != 2 || project.TotalAmount.Cents != 16500 {
		t.Fatalf("unexpected project %+v", project)
	}
	paint, tiles := project.Items[0], project.Items[1]
	if tiles.Note != "grey" {
		t.Errorf("expected tiles note, got %q", tiles.Note)
	}

	runCLI(t, "projects", "item", "select", project.ID, tiles.ID)
	out = runCLI(t, "projects", "to-payments", project.ID, "--due", "2024-04-01")
	if !strings.Contains(out, "Added payment Kitchen - Tiles") {
		t.Errorf("unexpected to-payments output %q", out)
	}

	payments := listPayments(t)
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %+v", payments)
	}
	if p := payments[0]; p.Group != core.ProjectsGroup || p.Type != core.OneOff || p.Amount.Cents != 12000 || p.Note != "grey" {
		t.Errorf("unexpected rolled-up payment %+v", p)
	}

	out = runCLI(t, "projects", "to-payments", project.ID, "--whole", "--due", "2024-04-01")
	if !strings.Contains(out, "Added payment Kitchen ") || !strings.Contains(out, "45.00") {
		t.Errorf("unexpected whole-project output %q", out)
	}
	if out := runCLI(t, "projects", "to-payments", project.ID, "--whole"); out != "Nothing to add.\n" {
		t.Errorf("expected nothing left to add, got %q", out)
	}

	out = runCLI(t, "projects", "show", project.ID)
	if !strings.Contains(out, paint.ID) || !strings.Contains(out, "Completed: 165.00") {
		t.Errorf("unexpected show output %q", out)
	}

	runCLI(t, "projects", "delete", project.ID)
	if out := runCLI(t, "projects", "list"); !strings.Contains(out, "No projects found") {
		t.Errorf("expected no projects, got %q", out)
	}
}

func TestProjectItemErrors(t *testing.T) {
	setupEnv(t)

	if err := runCLIErr(t, "projects", "add", "Garden", "--item", "Soil"); !strings.Contains(err.Error(), "want name:amount") {
		t.Errorf("unexpected error %v", err)
	}
	if err := runCLIErr(t, "projects", "item", "add", "missing", "Soil:10"); !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error %v", err)
	}
	if err := runCLIErr(t, "projects", "to-payments", "missing", "--whole", "--items", "a"); !strings.Contains(err.Error(), "cannot be combined") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestTheme(t *testing.T) {
	setupEnv(t)

	if out := runCLI(t, "theme", "get"); out != "light\n" {
		t.Errorf("expected default light theme, got %q", out)
	}
	if out := runCLI(t, "theme", "set", "midnight"); out != "Theme set to midnight\n" {
		t.Errorf("unexpected set output %q", out)
	}
	if out := runCLI(t, "theme", "get"); out != "midnight\n" {
		t.Errorf("theme should persist, got %q", out)
	}
	if err := runCLIErr(t, "theme", "set", "neon"); !strings.Contains(err.Error(), "unknown theme") {
		t.Errorf("unexpected error %v", err)
	}
	if out := runCLI(t, "theme", "list"); !strings.Contains(out, "luxe") {
		t.Errorf("expected luxe in theme list, got %q", out)
	}
}

func TestPaymentsListShowsUrgency(t *testing.T) {
	setupEnv(t)

	runCLI(t, "payments", "add", "Old tax", "120", "--due", "2000-01-15", "--type", "one-off")
	runCLI(t, "payments", "add", "Far rent", "900", "--due", "2999-01-01")
	paid := runCLI(t, "payments", "add", "Paid bill", "10", "--due", "2000-01-01", "--json")
	var p core.Payment
	if err := json.Unmarshal([]byte(paid), &p); err != nil {
		t.Fatalf("decode payment: %v", err)
	}
	runCLI(t, "payments", "complete", p.ID)

	out := runCLI(t, "payments", "list", "--completed")
	if !strings.Contains(out, "Urgency") {
		t.Fatalf("missing urgency column in %q", out)
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		fields := strings.Fields(line)
		switch {
		case strings.Contains(line, "Old tax"):
			if !strings.Contains(line, "days overdue") || !slices.Contains(fields, string(core.UrgencyHigh)) {
				t.Errorf("overdue payment should be high urgency: %q", line)
			}
		case strings.Contains(line, "Far rent"):
			if !slices.Contains(fields, string(core.UrgencyLow)) {
				t.Errorf("distant payment should be low urgency: %q", line)
			}
		case strings.Contains(line, "Paid bill"):
			if !strings.Contains(line, "Paid") || slices.Contains(fields, string(core.UrgencyHigh)) {
				t.Errorf("completed payment should show no urgency: %q", line)
			}
		}
	}
}

func TestProjectsToPaymentsPerItemDueDates(t *testing.T) {
	setupEnv(t)

	out := runCLI(t, "projects", "add", "Garden", "--item", "Soil:30", "--item", "Fence:400", "--json")
	var project core.Project
	if err := json.Unmarshal([]byte(out), &project); err != nil {
		t.Fatalf("decode project %q: %v", out, err)
	}
	soil, fence := project.Items[0], project.Items[1]

	runCLI(t, "projects", "to-payments", project.ID,
		"--item-due", soil.ID+"=2024-05-01",
		"--item-due", fence.ID+"=2024-06-15")

	due := map[string]string{}
	for _, p := range listPayments(t) {
		due[p.Name] = p.DueDate.String()
	}
	if due["Garden - Soil"] != "2024-05-01" || due["Garden - Fence"] != "2024-06-15" {
		t.Errorf("each item should keep its own due date, got %v", due)
	}

	err := runCLIErr(t, "projects", "to-payments", project.ID, "--item-due", soil.ID+"=May 1st")
	if !strings.Contains(err.Error(), "invalid date") {
		t.Errorf("unexpected error %v", err)
	}
	err = runCLIErr(t, "projects", "to-payments", project.ID, "--whole", "--item-due", soil.ID+"=2024-05-01")
	if !strings.Contains(err.Error(), "cannot be combined") {
		t.Errorf("unexpected error %v", err)
	}
}
