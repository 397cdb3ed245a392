package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/webtoz/internal/client/api"
	"github.com/dmitrijs2005/webtoz/internal/common"
)

// Register prompts for name, email and a confirmed password and creates the
// account. A successful registration is also a login.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.session.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	a.println("User registered successfully. Welcome,", u.Name+"!")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	a.println("Login successful. Welcome back,", u.Name+"!")
	return nil
}

// Logout ends the session locally even if the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.println("Logout successful")
	return nil
}

// Me fetches the current account from the server and refreshes the cached
// snapshot.
func (a *App) Me(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	if err := a.session.UpdateUser(ctx, u); err != nil {
		return err
	}
	fmt.Fprint(a.out, u.String())
	return nil
}

// Profile updates name and avatar URL; an empty answer keeps the field.
func (a *App) Profile(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "New name (empty to keep)", a.out)
	if err != nil {
		return err
	}
	avatar, err := getSimpleText(a.reader, "New avatar URL (empty to keep)", a.out)
	if err != nil {
		return err
	}

	var p api.ProfileUpdate
	if name != "" {
		p.Name = &name
	}
	if avatar != "" {
		p.Avatar = &avatar
	}
	if p.Name == nil && p.Avatar == nil {
		return errNothingToUpdate
	}

	u, err := a.api.UpdateProfile(ctx, p)
	if err != nil {
		return err
	}
	if err := a.session.UpdateUser(ctx, u); err != nil {
		return err
	}

	a.println("Profile updated successfully")
	return nil
}

// Passwd changes the password of the current account.
func (a *App) Passwd(ctx context.Context) error {
	current, err := getPassword(a.reader, "Current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	msg, err := a.api.ChangePassword(ctx, string(current), string(next))
	if err != nil {
		return err
	}
	a.println(msg)
	return nil
}

// Forgot requests a password reset token for an email address.
func (a *App) Forgot(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	msg, err := a.api.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	a.println(msg)
	return nil
}

// Reset sets a new password using a reset token, given as the argument or
// prompted for, and logs in with the session the server returns.
func (a *App) Reset(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usage("reset [token]")
	}

	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		t, err := getSimpleText(a.reader, "Enter reset token", a.out)
		if err != nil {
			return err
		}
		token = t
	}
	if token == "" {
		return usage("reset [token]")
	}

	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.session.ResetPassword(ctx, token, string(password))
	if err != nil {
		return err
	}
	a.println("Password reset successful. Logged in as", u.Email)
	return nil
}

// newPassword asks for a password twice.
func (a *App) newPassword() ([]byte, error) {
	pw, err := getPassword(a.reader, "Enter new password", a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := getPassword(a.reader, "Confirm password", a.out)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		common.WipeByteArray(pw)
		return nil, errPasswordMismatch
	}
	return pw, nil
}
