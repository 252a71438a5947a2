package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"monthly/internal/core"
	"monthly/internal/services"
)

func projectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Plan projects and turn their items into payments",
	}

	cmd.AddCommand(addProjectCmd(a))
	cmd.AddCommand(listProjectsCmd(a))
	cmd.AddCommand(showProjectCmd(a))
	cmd.AddCommand(updateProjectCmd(a))
	cmd.AddCommand(deleteProjectCmd(a))
	cmd.AddCommand(projectItemCmd(a))
	cmd.AddCommand(toPaymentsCmd(a))

	return cmd
}

// parseItem reads "name:amount[:note]".
func parseItem(s string) (services.ProjectItemInput, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return services.ProjectItemInput{}, fmt.Errorf("invalid item %q: want name:amount[:note]", s)
	}
	amount, err := core.ParseMoney(parts[1])
	if err != nil {
		return services.ProjectItemInput{}, fmt.Errorf("invalid item amount %q: %w", parts[1], err)
	}
	in := services.ProjectItemInput{Name: strings.TrimSpace(parts[0]), Amount: amount}
	if len(parts) == 3 {
		in.Note = parts[2]
	}
	if err := (core.ProjectItem{Name: in.Name, Amount: in.Amount}).Validate(); err != nil {
		return services.ProjectItemInput{}, fmt.Errorf("invalid item %q: %w", s, err)
	}
	return in, nil
}

func addProjectCmd(a *app) *cobra.Command {
	var (
		description string
		items       []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return fmt.Errorf("project name cannot be empty")
			}
			in := services.ProjectInput{Name: args[0], Description: description}
			for _, s := range items {
				item, err := parseItem(s)
				if err != nil {
					return err
				}
				in.Items = append(in.Items, item)
			}

			p := a.svc.Projects.Add(cmd.Context(), in)
			if a.asJSON {
				return a.printJSON(cmd, p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added project %s (%s) with %d items totalling %s\n",
				p.Name, p.ID, len(p.Items), p.TotalAmount)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "project description")
	cmd.Flags().StringArrayVar(&items, "item", nil, "item as name:amount[:note] (repeatable)")
	return cmd
}

func listProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects := a.svc.Projects.Projects()
			if a.asJSON {
				return a.printJSON(cmd, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found. Use 'monthly projects add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tName\tItems\tTotal\tDescription")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, len(p.Items), p.TotalAmount, p.Description)
			}
			return nil
		},
	}
}

func showProjectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's items and totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := a.svc.Projects.Get(args[0])
			if !ok {
				return fmt.Errorf("project %q not found", args[0])
			}
			summary, _ := a.svc.Projects.Summary(p.ID)
			if a.asJSON {
				return a.printJSON(cmd, struct {
					Project core.Project            `json:"project"`
					Summary services.ProjectSummary `json:"summary"`
				}{p, summary})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
			if p.Description != "" {
				fmt.Fprintln(out, p.Description)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nID\tItem\tAmount\tState\tNote")
			for _, it := range p.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Name, it.Amount, itemState(it), it.Note)
			}
			w.Flush()
			fmt.Fprintf(out, "\nSelected: %s  Remaining: %s  Completed: %s  Total: %s\n",
				summary.SelectedTotal, summary.RemainingTotal, summary.CompletedTotal, p.TotalAmount)
			return nil
		},
	}
}

func itemState(it core.ProjectItem) string {
	switch {
	case it.IsCompleted:
		return "done"
	case it.IsSelected:
		return "selected"
	default:
		return "open"
	}
}

func updateProjectCmd(a *app) *cobra.Command {
	var (
		name        string
		description string
		items       []string
	)

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Change a project's name, description or items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch services.ProjectPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("item") {
				parsed := make([]services.ProjectItemInput, 0, len(items))
				for _, s := range items {
					item, err := parseItem(s)
					if err != nil {
						return err
					}
					parsed = append(parsed, item)
				}
				patch.Items = &parsed
			}
			if !a.svc.Projects.Update(cmd.Context(), args[0], patch) {
				return fmt.Errorf("project %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringArrayVar(&items, "item", nil, "replace all items, each as name:amount[:note]")
	return cmd
}

func deleteProjectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <project-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.svc.Projects.Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("project %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}
}

func projectItemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage the items of a project",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <project-id> <name:amount[:note]>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseItem(args[1])
			if err != nil {
				return err
			}
			item, ok := a.svc.Projects.AddItem(cmd.Context(), args[0], in)
			if !ok {
				return fmt.Errorf("project %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added item %s (%s)\n", item.Name, item.ID)
			return nil
		},
	})

	var (
		name   string
		amount string
		note   string
	)
	update := &cobra.Command{
		Use:   "update <project-id> <item-id>",
		Short: "Change an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch services.ProjectItemPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("amount") {
				m, err := core.ParseMoney(amount)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
				patch.Amount = &m
			}
			if cmd.Flags().Changed("note") {
				patch.Note = &note
			}
			return itemResult(cmd, a.svc.Projects.UpdateItem(cmd.Context(), args[0], args[1], patch), "Updated", args)
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&amount, "amount", "", "new amount")
	update.Flags().StringVar(&note, "note", "", "new note")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:     "delete <project-id> <item-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return itemResult(cmd, a.svc.Projects.DeleteItem(cmd.Context(), args[0], args[1]), "Deleted", args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <project-id> <item-id>",
		Short: "Toggle whether an open item is selected",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return itemResult(cmd, a.svc.Projects.ToggleItemSelection(cmd.Context(), args[0], args[1]), "Toggled selection of", args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "complete <project-id> <item-id>",
		Short: "Toggle whether an item is done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return itemResult(cmd, a.svc.Projects.ToggleItemCompletion(cmd.Context(), args[0], args[1]), "Toggled completion of", args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select-all <project-id>",
		Short: "Select every open item, or clear the selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.svc.Projects.ToggleSelectAll(cmd.Context(), args[0]) {
				return fmt.Errorf("project %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Toggled selection of all items in %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func itemResult(cmd *cobra.Command, ok bool, verb string, args []string) error {
	if !ok {
		return fmt.Errorf("item %q not found in project %q", args[1], args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s item %s\n", verb, args[1])
	return nil
}

func toPaymentsCmd(a *app) *cobra.Command {
	var (
		due     string
		itemIDs []string
		itemDue map[string]string
		whole   bool
	)

	cmd := &cobra.Command{
		Use:   "to-payments <project-id>",
		Short: "Turn project items into one-off payments",
		Long: `Add one-off payments in the Projects group. By default every selected
item becomes a payment; --items picks items by id, --item-due picks
items by id with a due date each, and --whole adds a single payment for
everything still open.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			picked := 0
			for _, set := range []bool{whole, len(itemIDs) > 0, len(itemDue) > 0} {
				if set {
					picked++
				}
			}
			if picked > 1 {
				return fmt.Errorf("--whole, --items and --item-due cannot be combined")
			}
			dues := make(map[string]core.Date, len(itemDue))
			for id, s := range itemDue {
				d, err := core.ParseDate(s)
				if err != nil {
					return fmt.Errorf("due date for item %q: %w", id, err)
				}
				dues[id] = d
			}
			dueDate := a.today()
			if due != "" {
				var err error
				if dueDate, err = core.ParseDate(due); err != nil {
					return err
				}
			}
			if _, ok := a.svc.Projects.Get(args[0]); !ok {
				return fmt.Errorf("project %q not found", args[0])
			}

			var added []core.Payment
			switch {
			case whole:
				if p, ok := a.svc.Projects.AddWholeProjectToPayments(cmd.Context(), args[0], dueDate); ok {
					added = append(added, p)
				}
			case len(itemIDs) > 0:
				added = a.svc.Projects.AddItemsToPayments(cmd.Context(), args[0], itemIDs, dueDate)
			case len(dues) > 0:
				added = a.svc.Projects.AddItemsWithDueDates(cmd.Context(), args[0], dues)
			default:
				added = a.svc.Projects.AddSelectedToPayments(cmd.Context(), args[0], dueDate)
			}

			if a.asJSON {
				return a.printJSON(cmd, added)
			}
			if len(added) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to add.")
				return nil
			}
			for _, p := range added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added payment %s (%s) %s due %s\n", p.Name, p.ID, p.Amount, p.DueDate)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD, default today)")
	cmd.Flags().StringSliceVar(&itemIDs, "items", nil, "item ids to add")
	cmd.Flags().StringToStringVar(&itemDue, "item-due", nil, "item id=YYYY-MM-DD pairs, each due on its own date")
	cmd.Flags().BoolVar(&whole, "whole", false, "add the whole remaining project as one payment")
	return cmd
}
