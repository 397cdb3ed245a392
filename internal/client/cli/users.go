package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/webtoz/internal/client/api"
	"github.com/dmitrijs2005/webtoz/internal/client/models"
)

const (
	usageUsers  = "users [-page N] [-limit N] [-search text] [-role user|admin] [-active true|false]"
	usageUpdate = "update <id> [-name s] [-email s] [-role user|admin] [-active true|false] [-avatar url]"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// boolFlag records whether it was given at all.
type boolFlag struct {
	set   bool
	value bool
}

func (b *boolFlag) String() string { return strconv.FormatBool(b.value) }

func (b *boolFlag) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.set, b.value = true, v
	return nil
}

// Users lists accounts page by page (admin only on the server).
func (a *App) Users(ctx context.Context, args []string) error {
	var (
		p      api.ListParams
		active boolFlag
	)
	fs := newFlagSet("users")
	fs.IntVar(&p.Page, "page", 1, "page number")
	fs.IntVar(&p.Limit, "limit", 10, "page size")
	fs.StringVar(&p.Search, "search", "", "name or email substring")
	fs.StringVar(&p.Role, "role", "", "user or admin")
	fs.Var(&active, "active", "true or false")
	if err := fs.Parse(args); err != nil || fs.NArg() > 0 {
		return usage(usageUsers)
	}
	if active.set {
		p.IsActive = &active.value
	}

	list, err := a.api.ListUsers(ctx, p)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
	for _, u := range list.Users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.IsActive)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	pg := list.Pagination
	fmt.Fprintf(a.out, "Page %d of %d, %d user(s) total\n", pg.Page, max(pg.Pages, 1), pg.Total)
	return nil
}

// User shows a single account. Non-admins may only look at themselves.
func (a *App) User(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("user <id>")
	}
	u, err := a.api.GetUser(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, u.String())
	return nil
}

// Update changes the flagged fields of an account.
func (a *App) Update(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return usage(usageUpdate)
	}
	id := args[0]

	var (
		name, email, role, avatar string
		active                    boolFlag
	)
	fs := newFlagSet("update")
	fs.StringVar(&name, "name", "", "new name")
	fs.StringVar(&email, "email", "", "new email")
	fs.StringVar(&role, "role", "", "user or admin")
	fs.StringVar(&avatar, "avatar", "", "avatar URL")
	fs.Var(&active, "active", "true or false")
	if err := fs.Parse(args[1:]); err != nil || fs.NArg() > 0 {
		return usage(usageUpdate)
	}

	var upd api.UserUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			upd.Name = &name
		case "email":
			upd.Email = &email
		case "role":
			upd.Role = &role
		case "avatar":
			upd.Avatar = &avatar
		case "active":
			upd.IsActive = &active.value
		}
	})
	if upd == (api.UserUpdate{}) {
		return errNothingToUpdate
	}

	u, err := a.api.UpdateUser(ctx, id, upd)
	if err != nil {
		return err
	}
	if me := a.session.User(); me != nil && me.ID == u.ID {
		if err := a.session.UpdateUser(ctx, u); err != nil {
			return err
		}
	}

	a.println("User updated successfully")
	fmt.Fprint(a.out, u.String())
	return nil
}

// Delete removes an account after a typed confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <id>")
	}
	id := args[0]

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Type 'yes' to delete user %s", id), a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		return errCancelled
	}

	msg, err := a.api.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	a.println(msg)
	return nil
}

// Stats prints the admin dashboard counters.
func (a *App) Stats(ctx context.Context) error {
	s, err := a.api.Stats(ctx)
	if err != nil {
		return err
	}
	printStats(a.out, s)
	return nil
}

func printStats(w io.Writer, s *models.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		value int64
	}{
		{"Total users", s.TotalUsers},
		{"Active", s.ActiveUsers},
		{"Inactive", s.InactiveUsers},
		{"Admins", s.AdminUsers},
		{"Regular", s.RegularUsers},
		{"Verified", s.VerifiedUsers},
		{"Unverified", s.UnverifiedUsers},
		{"New (30 days)", s.RecentUsers},
		{"Active (7 days)", s.ActiveInLastWeek},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%d\n", r.label, r.value)
	}
	_ = tw.Flush()
}
