package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/platerecon/internal/buildinfo"
	"github.com/dmitrijs2005/platerecon/internal/client/api"
	"github.com/dmitrijs2005/platerecon/internal/client/config"
)

var errUsage = errors.New("usage")

// App runs one CLI command against the gateway.
type App struct {
	config *config.Config
	api    *api.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		config: cfg,
		api:    api.New(cfg.ServerURL, cfg.Timeout),
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run dispatches args[0] to its command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUsage
	}

	cmd, rest := args[0], args[1:]

	if cmd != "register" && cmd != "login" && cmd != "help" && cmd != "version" {
		token, err := loadToken(a.config.TokenFile)
		if err != nil {
			return err
		}
		a.api.SetToken(token)
	}

	switch cmd {
	case "help":
		a.usage()
		return nil
	case "version":
		buildinfo.PrintBuildData(a.out)
		return nil
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "me":
		return a.me(ctx)
	case "status":
		return a.status(ctx)
	case "reconstruct":
		return a.reconstruct(ctx, rest)
	default:
		a.usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: platerecon [--server URL] [--token-file PATH] <command>")
	fmt.Fprintln(a.out, "Available commands: register, login, logout, me, status, version, reconstruct <image> [-o out.png]")
}
