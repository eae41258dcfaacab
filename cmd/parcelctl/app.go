package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/parcelpoint/parcel-tracking/internal/client/api"
	"github.com/parcelpoint/parcel-tracking/internal/client/session"
	"github.com/parcelpoint/parcel-tracking/internal/client/store"
	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
	"github.com/parcelpoint/parcel-tracking/internal/pkg/config"
	"github.com/parcelpoint/parcel-tracking/pkg/logger"
)

var (
	errSignedOut = errors.New("not signed in, run `parcelctl login`")
	errForbidden = errors.New("not available for this account")
)

// app holds everything a command needs. The root command's pre-run hook
// fills it before any command runs.
type app struct {
	store   *store.SQLiteStore
	session *session.Manager
	client  *api.Client
}

// boot loads configuration, opens the session store and restores the saved
// session.
func (a *app) boot(ctx context.Context) error {
	cfg, err := config.LoadClient(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  true,
		Service: "parcelctl",
		Output:  os.Stderr,
	})

	st, err := store.Open(ctx, cfg.SessionDB)
	if err != nil {
		return err
	}

	sess := session.NewManager(st, log)
	client, err := api.New(cfg.APIBaseURL, sess,
		api.WithAuthURL(cfg.AuthBaseURL),
		api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		api.WithLogger(log),
	)
	if err != nil {
		st.Close()
		return err
	}
	sess.SetProfileFetcher(client)
	a.store, a.session, a.client = st, sess, client

	// A failed read leaves the session signed out, which every command handles.
	if err := sess.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("starting without a saved session")
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// require fails unless the session is signed in and its role grants c.
func (a *app) require(c domain.Capability) error {
	state := a.session.State()
	if !state.IsAuthenticated() {
		return errSignedOut
	}
	if !state.Can(c) {
		role := "unknown"
		if state.User != nil {
			role = string(state.User.Role)
		}
		return fmt.Errorf("%w (role %s)", errForbidden, role)
	}
	return nil
}

func (a *app) requireSignedIn() error {
	if !a.session.State().IsAuthenticated() {
		return errSignedOut
	}
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "parcelctl",
		Short:         "Track parcels and manage deliveries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.boot(cmd.Context())
		},
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newOrdersCmd(a),
		newOrderCmd(a),
		newCourierCmd(a),
		newSettingsCmd(a),
	)
	return root
}

// execute runs one invocation and closes the session store whatever the
// outcome.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}
