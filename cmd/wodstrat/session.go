package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goliatone/go-print"
	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-wodstrat"
	"github.com/goliatone/go-wodstrat/client"
	"github.com/goliatone/go-wodstrat/config"
	"github.com/goliatone/go-wodstrat/tokenstore"
)

// session is the client side session core backed by the token file
type session struct {
	cfg     *config.Config
	out     io.Writer
	logger  *consoleLogger
	api     *client.Client
	manager *wodstrat.StateManager
	link    *wodstrat.AthleteLink
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger := newLogger(c)
	store := tokenstore.NewFile(cfg.Client.TokenPath)

	decoder := wodstrat.NewSessionDecoder()
	if cfg.JWT.Secret != "" {
		decoder = wodstrat.NewSessionDecoder(wodstrat.WithDecoderSigningKey([]byte(cfg.JWT.Secret)))
	}

	manager := wodstrat.NewStateManager(store,
		wodstrat.WithStateDecoder(decoder),
		wodstrat.WithStateLogger(logger),
	)

	return &session{
		cfg:    cfg,
		out:    c.App.Writer,
		logger: logger,
		api: client.New(cfg.Client.BaseURL,
			client.WithTokenStore(store),
			client.WithLogger(logger),
		),
		manager: manager,
		link:    wodstrat.NewAthleteLink(manager, wodstrat.WithAthleteLinkLogger(logger)),
	}, nil
}

// restore loads the stored session, requireAuth fails without one
func (s *session) restore(ctx context.Context, requireAuth bool) (wodstrat.AuthState, error) {
	state, err := s.manager.Initialize(ctx)
	if err != nil {
		return state, err
	}
	if requireAuth && !state.IsAuthenticated {
		return state, wodstrat.ErrNoSession
	}
	return state, nil
}

func (s *session) Close() {
	s.link.Close()
}

func withSession(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := newSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(c, s)
	}
}

func newSessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "manage the local client session",
		Subcommands: []*cli.Command{
			{
				Name:  "register",
				Usage: "create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "first-name"},
					&cli.StringFlag{Name: "last-name"},
				},
				Action: withSession(sessionRegister),
			},
			{
				Name:  "login",
				Usage: "sign in and store the token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: withSession(sessionLogin),
			},
			{
				Name:   "status",
				Usage:  "print the stored session",
				Action: withSession(sessionStatus),
			},
			{
				Name:   "refresh",
				Usage:  "exchange the stored token for a fresh one",
				Action: withSession(sessionRefresh),
			},
			{
				Name:   "logout",
				Usage:  "forget the stored token",
				Action: withSession(sessionLogout),
			},
			{
				Name:  "create-athlete",
				Usage: "create the athlete profile of the signed in user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Required: true},
					&cli.StringFlag{Name: "last-name", Required: true},
					&cli.StringFlag{Name: "dob", Usage: "date of birth, YYYY-MM-DD"},
					&cli.StringFlag{Name: "gender"},
					&cli.Float64Flag{Name: "height", Usage: "height in cm"},
					&cli.Float64Flag{Name: "weight", Usage: "weight in kg"},
					&cli.StringFlag{Name: "experience", Value: wodstrat.ExperienceBeginner},
					&cli.StringFlag{Name: "goal"},
				},
				Action: withSession(sessionCreateAthlete),
			},
			{
				Name:      "navigate",
				Usage:     "run the route gate for a path",
				ArgsUsage: "<path>",
				Action:    withSession(sessionNavigate),
			},
		},
	}
}

func sessionRegister(c *cli.Context, s *session) error {
	resp, err := s.api.Register(c.Context, wodstrat.RegisterRequest{
		Email:           c.String("email"),
		Password:        c.String("password"),
		ConfirmPassword: c.String("password"),
		FirstName:       c.String("first-name"),
		LastName:        c.String("last-name"),
	})
	if err != nil {
		return err
	}
	return s.adopt(c.Context, resp.Token)
}

func sessionLogin(c *cli.Context, s *session) error {
	resp, err := s.api.Login(c.Context, wodstrat.LoginRequest{
		Email:    c.String("email"),
		Password: c.String("password"),
	})
	if err != nil {
		return err
	}
	return s.adopt(c.Context, resp.Token)
}

func sessionStatus(c *cli.Context, s *session) error {
	state, err := s.restore(c.Context, false)
	if err != nil {
		return err
	}
	s.printState(state)
	return nil
}

func sessionRefresh(c *cli.Context, s *session) error {
	if _, err := s.restore(c.Context, true); err != nil {
		return err
	}

	resp, err := s.api.Refresh(c.Context)
	if err != nil {
		return err
	}
	return s.adopt(c.Context, resp.Token)
}

func sessionLogout(c *cli.Context, s *session) error {
	if _, err := s.restore(c.Context, false); err != nil {
		s.logger.Warn("restore before logout failed: %v", err)
	}
	if err := s.manager.Logout(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "signed out")
	return nil
}

func sessionCreateAthlete(c *cli.Context, s *session) error {
	if _, err := s.restore(c.Context, true); err != nil {
		return err
	}

	athlete, err := s.api.CreateAthlete(c.Context, wodstrat.CreateAthleteRequest{
		FirstName:       c.String("first-name"),
		LastName:        c.String("last-name"),
		DateOfBirth:     c.String("dob"),
		Gender:          c.String("gender"),
		HeightCm:        c.Float64("height"),
		WeightKg:        c.Float64("weight"),
		ExperienceLevel: c.String("experience"),
		PrimaryGoal:     c.String("goal"),
	})
	if err != nil {
		return err
	}

	id := athlete.ID
	s.link.SetAthleteID(&id)
	fmt.Fprintln(s.out, print.MaybePrettyJSON(athlete))

	// The stored token predates the athlete, swap it for one carrying it.
	resp, err := s.api.Refresh(c.Context)
	if err != nil {
		s.logger.Warn("token refresh after athlete creation failed: %v", err)
		return nil
	}
	return s.adopt(c.Context, resp.Token)
}

func sessionNavigate(c *cli.Context, s *session) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("navigate requires a path")
	}

	if _, err := s.restore(c.Context, false); err != nil {
		return err
	}

	gate := wodstrat.NewRouteGate(
		wodstrat.WithProfileSetupPath(s.cfg.Gate.ProfileSetupPath),
		wodstrat.WithProfileHomePath(s.cfg.Gate.ProfileHomePath),
		wodstrat.WithGateLogger(s.logger),
	)

	navigator := wodstrat.NavigatorFunc(func(_ context.Context, target string) error {
		fmt.Fprintf(s.out, "redirect %s -> %s\n", path, target)
		return nil
	})

	binder := wodstrat.BindRouteGate(c.Context, s.link, navigator, gate,
		wodstrat.WithInitialPath(path),
		wodstrat.WithBinderLogger(s.logger),
	)
	defer binder.Close()

	decision, ok := binder.LastDecision()
	if !ok {
		fmt.Fprintf(s.out, "%s: no decision\n", binder.Path())
		return nil
	}
	fmt.Fprintf(s.out, "%s: %s\n", binder.Path(), decision)
	return nil
}

func (s *session) adopt(ctx context.Context, token string) error {
	if err := s.manager.Login(ctx, token); err != nil {
		return err
	}
	s.printState(s.manager.State())
	return nil
}

func (s *session) printState(state wodstrat.AuthState) {
	if !state.IsAuthenticated {
		fmt.Fprintln(s.out, "not signed in")
		return
	}
	fmt.Fprintln(s.out, state.User.String())
}
