package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/platerecon/internal/client/api"
	"github.com/dmitrijs2005/platerecon/internal/common"
	"github.com/dmitrijs2005/platerecon/internal/filex"
	"github.com/spf13/pflag"
)

// explain turns client errors into something a user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, api.ErrUnavailable):
		return fmt.Errorf("server unavailable: %w", err)
	case errors.Is(err, api.ErrUnauthorized):
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return fmt.Errorf("%s (run \"login\" again)", apiErr.Detail)
		}
		return errNotLoggedIn
	}
	return err
}

func (a *App) register(ctx context.Context) error {
	email, err := a.prompt("Email")
	if err != nil {
		return err
	}
	username, err := a.prompt("Username (letters, digits, _ and -)")
	if err != nil {
		return err
	}
	password, err := a.password(true)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.api.Register(ctx, email, username, string(password))
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(a.out, "Registered %s (id %d). Run \"login\" to get a token.\n", u.Username, u.ID)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	var login string
	if len(args) > 0 {
		login = args[0]
	} else {
		var err error
		login, err = a.prompt("Email or username")
		if err != nil {
			return err
		}
	}

	password, err := a.password(false)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	token, err := a.api.Login(ctx, login, password)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return errors.New(apiErr.Detail)
		}
		return explain(err)
	}

	if err := saveToken(a.config.TokenFile, token); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) logout() error {
	if err := removeToken(a.config.TokenFile); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) me(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(a.out, "id:       %d\nemail:    %s\nusername: %s\nactive:   %t\n", u.ID, u.Email, u.Username, u.IsActive)
	return nil
}

func (a *App) status(ctx context.Context) error {
	s, err := a.api.ModelStatus(ctx)
	if err != nil {
		return explain(err)
	}
	if !s.Loaded {
		fmt.Fprintln(a.out, "model: not loaded")
		return nil
	}
	fmt.Fprintf(a.out, "model: loaded\npath:  %s\ninput: %v\noutput: %v\n", s.ModelPath, s.InputShape, s.OutputShape)
	return nil
}

func (a *App) reconstruct(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("reconstruct", pflag.ContinueOnError)
	fs.SetOutput(a.out)
	out := fs.StringP("output", "o", "", "where to write the PNG (default reconstructed_<name>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: reconstruct <image> [-o out.png]", errUsage)
	}
	input := fs.Arg(0)

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	if int64(len(data)) > common.MaxUploadBytes {
		return fmt.Errorf("%s is larger than %d MB", input, common.MaxUploadBytes>>20)
	}

	rec, err := a.api.Reconstruct(ctx, input, data)
	if err != nil {
		return explain(err)
	}

	dest := *out
	if dest == "" {
		dest = rec.Filename
		if dest == "" {
			dest = "reconstructed_" + strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".png"
		}
		dest = filepath.Join(filepath.Dir(input), filepath.Base(dest))
	}

	if err := filex.WriteFile(dest, rec.PNG, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Saved %s (id %s, digest %s)\n", dest, rec.ID, rec.Digest)
	return nil
}
