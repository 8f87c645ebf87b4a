package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firelog/backend/internal/apiclient"
	"firelog/backend/internal/config"
	"firelog/backend/internal/domain/identity"
	"firelog/backend/internal/domain/reconcile"
	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/logger"
	"firelog/backend/internal/offline"
)

var version = "dev"

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	global     bool
	debug      bool

	cfg     config.CLI
	log     logger.Logger
	session *identity.Session
	out     io.Writer

	// newProvider builds the interactive sign-in provider. Tests replace it.
	newProvider func(ctx context.Context) (identity.Provider, error)
}

// facade is the task/log API the commands run against, either the remote
// API or the offline cache.
type facade interface {
	reconcile.Remote
	LoadAllLogs(ctx context.Context, scope tasklog.Scope) ([]tasklog.LogEntry, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "firelog",
		Short:        "Record tasks and time logs in Firestore",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.persist()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/firelog/config.yaml)")
	root.PersistentFlags().BoolVar(&a.global, "global", false, "use the shared global namespace (admin only)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "print diagnostics to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTaskCmd(a),
		newLogCmd(a),
		newSyncCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadCLI(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()

	if a.debug {
		a.log = logger.NewStd(cmd.ErrOrStderr(), true)
	} else {
		a.log = logger.Discard()
	}

	u, err := identity.LoadUser(cfg.SessionFile)
	if err != nil {
		return err
	}
	a.session = identity.NewSession(cliProvider{a}, a.log, u)
	a.session.Subscribe(func(u *identity.User) {
		if err := identity.SaveUser(a.cfg.SessionFile, u); err != nil {
			a.log.Errorf("error saving session: %v", err)
		}
	})
	return nil
}

// persist saves a session whose token was refreshed during the command.
func (a *app) persist() error {
	if a.session == nil {
		return nil
	}
	if u := a.session.CurrentUser(); u != nil {
		return identity.SaveUser(a.cfg.SessionFile, u)
	}
	return nil
}

func (a *app) provider(ctx context.Context) (identity.Provider, error) {
	if a.newProvider != nil {
		return a.newProvider(ctx)
	}
	secrets, err := os.ReadFile(a.cfg.ClientSecrets)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", a.cfg.ClientSecrets, err)
	}
	return identity.NewGoogleProvider(ctx, secrets, a.cfg.FirebaseAPIKey, a.out)
}

func (a *app) scope() (tasklog.Scope, error) {
	if a.global {
		return tasklog.Global(), nil
	}
	u := a.session.CurrentUser()
	if u == nil {
		return tasklog.Scope{}, fmt.Errorf("%w: run `firelog login` first", identity.ErrNotSignedIn)
	}
	return tasklog.User(u.UID), nil
}

func (a *app) remote() *apiclient.Client {
	return apiclient.New(a.cfg.APIURL, a.session)
}

func (a *app) cache(ctx context.Context, scope tasklog.Scope) (*offline.Cache, error) {
	if scope.IsGlobal() {
		return nil, errors.New("the offline cache only holds your own tasks")
	}
	return offline.Open(ctx, a.cfg.CachePath(scope.UserID), scope)
}

func (a *app) facade(ctx context.Context, scope tasklog.Scope, useCache bool) (facade, error) {
	if !useCache {
		return a.remote(), nil
	}
	c, err := a.cache(ctx, scope)
	if err != nil {
		return nil, err
	}
	return tasklog.NewService(c, a.log), nil
}

// cliProvider defers building the Google provider until a sign-in actually
// happens, so commands work without a client secrets file.
type cliProvider struct {
	a *app
}

func (p cliProvider) SignIn(ctx context.Context) (*identity.User, error) {
	prov, err := p.a.provider(ctx)
	if err != nil {
		return nil, err
	}
	return prov.SignIn(ctx)
}

func (p cliProvider) SignOut(ctx context.Context, u *identity.User) error {
	return nil
}

func (p cliProvider) Refresh(ctx context.Context, u *identity.User) (*identity.User, error) {
	return identity.RefreshWithAPIKey(ctx, p.a.cfg.FirebaseAPIKey, u)
}
