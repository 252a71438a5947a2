package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"monthly/internal/core"
	"monthly/internal/services"
)

func paymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payments",
		Aliases: []string{"p"},
		Short:   "Manage monthly payments",
	}

	cmd.AddCommand(addPaymentCmd(a))
	cmd.AddCommand(listPaymentsCmd(a))
	cmd.AddCommand(updatePaymentCmd(a))
	cmd.AddCommand(deletePaymentCmd(a))
	cmd.AddCommand(completePaymentCmd(a))
	cmd.AddCommand(resetPaymentsCmd(a))
	cmd.AddCommand(reorderPaymentsCmd(a))
	cmd.AddCommand(totalCmd(a))
	cmd.AddCommand(groupsCmd(a))

	return cmd
}

// paymentFlags are shared by add and update.
type paymentFlags struct {
	due      string
	kind     string
	group    string
	note     string
	duration string
	endDate  string
}

func (f *paymentFlags) register(cmd *cobra.Command, defaultType string) {
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.kind, "type", defaultType, "payment type (recurring, one-off)")
	cmd.Flags().StringVar(&f.group, "group", "", "group label (default Household)")
	cmd.Flags().StringVar(&f.note, "note", "", "free-form note")
	cmd.Flags().StringVar(&f.duration, "duration", "", `recurring duration ("No end date", "Custom" or a month count)`)
	cmd.Flags().StringVar(&f.endDate, "end-date", "", "custom end date (YYYY-MM-DD, empty clears)")
}

func parsePaymentType(s string) (core.PaymentType, error) {
	t := core.PaymentType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid payment type %q: must be recurring or one-off", s)
	}
	return t, nil
}

func parseOptionalDate(s string) (*core.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func addPaymentCmd(a *app) *cobra.Command {
	var flags paymentFlags

	cmd := &cobra.Command{
		Use:   "add <name> <amount>",
		Short: "Add a payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseMoney(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			due := a.today()
			if flags.due != "" {
				if due, err = core.ParseDate(flags.due); err != nil {
					return err
				}
			}
			kind, err := parsePaymentType(flags.kind)
			if err != nil {
				return err
			}
			endDate, err := parseOptionalDate(flags.endDate)
			if err != nil {
				return err
			}

			in := services.PaymentInput{
				Name:              args[0],
				Amount:            amount,
				DueDate:           due,
				Type:              kind,
				RecurringDuration: flags.duration,
				CustomEndDate:     endDate,
				Note:              flags.note,
				Group:             flags.group,
			}
			candidate := core.Payment{Name: in.Name, Amount: in.Amount, DueDate: in.DueDate, Type: in.Type}
			if err := candidate.Validate(); err != nil {
				return fmt.Errorf("invalid payment: %w", err)
			}

			p := a.svc.Payments.Add(cmd.Context(), in)
			if a.asJSON {
				return a.printJSON(cmd, p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) due %s in %s\n", p.Name, p.ID, p.DueDate, p.Group)
			return nil
		},
	}

	flags.register(cmd, string(core.Recurring))
	return cmd
}

func listPaymentsCmd(a *app) *cobra.Command {
	var (
		filter    string
		completed bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments in stored order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := core.ParsePaymentFilter(filter)
			if err != nil {
				return err
			}

			var out []core.Payment
			for _, p := range a.svc.Payments.Payments() {
				if !f.Matches(p) || (p.IsCompleted && !completed) {
					continue
				}
				out = append(out, p)
			}

			if a.asJSON {
				return a.printJSON(cmd, out)
			}
			if len(out) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No payments found. Use 'monthly payments add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tName\tGroup\tDue\tStatus\tUrgency\tType\tAmount\tNote")
			today := a.today()
			for _, p := range out {
				days := core.DaysUntilDue(p.DueDate, today)
				status, urgency := core.DueLabel(days), string(core.UrgencyFor(days))
				if p.IsCompleted {
					status, urgency = "Paid", "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.Group, p.DueDate, status, urgency, p.Type, p.Amount, p.Note)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "all", "payment type filter (all, recurring, one-off)")
	cmd.Flags().BoolVar(&completed, "completed", false, "include completed payments")
	return cmd
}

func updatePaymentCmd(a *app) *cobra.Command {
	var (
		flags  paymentFlags
		name   string
		amount string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch services.PaymentPatch
			changed := cmd.Flags().Changed

			if changed("name") {
				patch.Name = &name
			}
			if changed("amount") {
				m, err := core.ParseMoney(amount)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
				patch.Amount = &m
			}
			if changed("due") {
				d, err := core.ParseDate(flags.due)
				if err != nil {
					return err
				}
				patch.DueDate = &d
			}
			if changed("type") {
				t, err := parsePaymentType(flags.kind)
				if err != nil {
					return err
				}
				patch.Type = &t
			}
			if changed("group") {
				patch.Group = &flags.group
			}
			if changed("note") {
				patch.Note = &flags.note
			}
			if changed("duration") {
				patch.RecurringDuration = &flags.duration
			}
			if changed("end-date") {
				d, err := parseOptionalDate(flags.endDate)
				if err != nil {
					return err
				}
				if d == nil {
					d = &core.Date{}
				}
				patch.CustomEndDate = d
			}

			if !a.svc.Payments.Update(cmd.Context(), args[0], patch) {
				return fmt.Errorf("payment %q not found", args[0])
			}
			p, _ := a.svc.Payments.Get(args[0])
			if a.asJSON {
				return a.printJSON(cmd, p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	flags.register(cmd, "")
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	return cmd
}

func deletePaymentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a payment",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.svc.Payments.Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("payment %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func completePaymentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Toggle whether a payment is paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.svc.Payments.ToggleComplete(cmd.Context(), args[0]) {
				return fmt.Errorf("payment %q not found", args[0])
			}
			p, _ := a.svc.Payments.Get(args[0])
			state := "active"
			if p.IsCompleted {
				state = "completed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s %s\n", p.Name, state)
			return nil
		},
	}
}

func resetPaymentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Roll recurring payments over to next month",
		Long: `Move every recurring payment one month forward and mark it active again.
Payments due on the last day of a month stay on the last day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := a.svc.Payments.ResetForNextMonth(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled over %d recurring payments\n", n)
			return nil
		},
	}
}

func reorderPaymentsCmd(a *app) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move an active payment within its group",
		Long: `Move the active payment at position <from> to position <to>, counted
from zero within the group given by --group. With grouping disabled the
positions count over all active payments.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid from index %q: %w", args[0], err)
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid to index %q: %w", args[1], err)
			}
			if !a.svc.Payments.Reorder(cmd.Context(), group, from, to) {
				return fmt.Errorf("no active payment at position %d", from)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reordered payments")
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", core.DefaultGroup, "group to reorder within")
	return cmd
}

func totalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Show the amount still to pay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			total := a.svc.Payments.TotalRemaining()
			counts := a.svc.Payments.Counts()
			if a.asJSON {
				return a.printJSON(cmd, struct {
					TotalRemaining core.Money      `json:"totalRemaining"`
					Counts         core.TypeCounts `json:"counts"`
				}{total, counts})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total remaining: %s (%d payments: %d recurring, %d one-off)\n",
				total, counts.All, counts.Recurring, counts.OneOff)
			return nil
		},
	}
}

func groupsCmd(a *app) *cobra.Command {
	var (
		filter  string
		names   bool
		choices bool
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show active payments by group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case names:
				return a.printNames(cmd, a.svc.Payments.AvailableGroups())
			case choices:
				return a.printNames(cmd, a.svc.Payments.GroupChoices())
			}

			f, err := core.ParsePaymentFilter(filter)
			if err != nil {
				return err
			}
			groups := a.svc.Payments.FilteredGroups(f)
			if a.asJSON {
				return a.printJSON(cmd, groups)
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active payments.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			for _, g := range groups {
				fmt.Fprintf(w, "%s (%d)\t\t\t%s\n", g.Name, len(g.Payments), g.Total)
				for _, p := range g.Payments {
					fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", p.Name, p.DueDate, p.Type, p.Amount)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "all", "payment type filter (all, recurring, one-off)")
	cmd.Flags().BoolVar(&names, "names", false, "list the group names in use")
	cmd.Flags().BoolVar(&choices, "choices", false, "list the groups offered for new payments")
	return cmd
}

func (a *app) printNames(cmd *cobra.Command, names []string) error {
	if a.asJSON {
		return a.printJSON(cmd, names)
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func groupingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grouping",
		Short: "Show or toggle payment grouping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Grouping %s\n", onOff(a.svc.Payments.GroupingEnabled()))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between grouped and flat views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enabled := a.svc.Payments.ToggleGrouping(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Grouping %s\n", onOff(enabled))
			return nil
		},
	})
	return cmd
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
