package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/login"
	"github.com/abhijith/smart-bookmark/internal/models"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with email and password or through a provider in your browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"BM_PASSWORD"}},
			&cli.StringFlag{Name: "provider", Usage: "OAuth provider, e.g. google or github"},
		},
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			client, sessions, err := e.api()
			if err != nil {
				return err
			}

			var sess *models.Session
			if provider := c.String("provider"); provider != "" {
				fmt.Printf("Opening your browser to sign in with %s...\n", provider)
				sess, err = login.NewOAuth(client, sessions, e.cfg.CallbackAddr, e.log).SignIn(c.Context, provider)
				if err != nil {
					return err
				}
			} else {
				email, password, err := credentials(c, os.Stdin)
				if err != nil {
					return err
				}
				sess, err = client.SignInWithPassword(c.Context, email, password)
				if err != nil {
					return fmt.Errorf("sign in: %w", err)
				}
				if err := sessions.Save(sess); err != nil {
					return err
				}
			}
			fmt.Printf("Signed in as %s\n", describeUser(sess.User))
			return nil
		},
	}
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"BM_PASSWORD"}},
			&cli.StringFlag{Name: "name", Usage: "full name shown in the dashboard"},
		},
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			client, sessions, err := e.api()
			if err != nil {
				return err
			}
			email, password, err := credentials(c, os.Stdin)
			if err != nil {
				return err
			}
			sess, user, err := client.SignUp(c.Context, email, password, c.String("name"))
			if err != nil {
				return fmt.Errorf("sign up: %w", err)
			}
			if sess == nil {
				fmt.Printf("Check %s to confirm your account, then run `bm login`.\n", user.Email)
				return nil
			}
			if err := sessions.Save(sess); err != nil {
				return err
			}
			fmt.Printf("Account created. Signed in as %s\n", describeUser(sess.User))
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget the stored session",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			client, sessions, err := e.api()
			if err != nil {
				return err
			}
			sess, err := sessions.Current(c.Context)
			if err == nil {
				if err := client.SignOut(c.Context, sess.AccessToken); err != nil {
					e.log.Warn("remote sign out failed", logger.Error(err))
				}
				if cc := e.snapshotCache(c.Context); cc != nil {
					if err := cc.Clear(c.Context, sess.User.ID); err != nil {
						e.log.Warn("clear snapshot cache", logger.Error(err))
					}
				}
			}
			if err := sessions.Clear(); err != nil {
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			sess, err := e.currentSession(c.Context)
			if err != nil {
				return err
			}
			user := sess.User
			if fresh, err := e.client.GetUser(c.Context, sess.AccessToken); err == nil {
				user = *fresh
			} else {
				e.log.Debug("profile lookup failed", logger.Error(err))
			}
			fmt.Printf("%s\n", describeUser(user))
			fmt.Printf("  id:      %s\n", user.ID)
			if !sess.ExpiresAt.IsZero() {
				fmt.Printf("  session: expires %s\n", humanize.Time(sess.ExpiresAt))
			}
			if cc := e.snapshotCache(c.Context); cc != nil {
				if at, err := cc.SyncedAt(c.Context, user.ID); err == nil && !at.IsZero() {
					fmt.Printf("  cache:   synced %s\n", humanize.RelTime(at, time.Now(), "ago", "from now"))
				}
			}
			return nil
		},
	}
}

func describeUser(u models.User) string {
	name := u.DisplayName()
	if u.Email != "" && u.Email != name {
		return fmt.Sprintf("%s <%s>", name, u.Email)
	}
	return name
}

// credentials reads email and password from flags, prompting for
// whatever is missing. The password prompt does not echo on a terminal.
func credentials(c *cli.Context, in io.Reader) (string, string, error) {
	email, password := strings.TrimSpace(c.String("email")), c.String("password")
	reader := bufio.NewReader(in)
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Print("Password: ")
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			raw, err := term.ReadPassword(int(f.Fd()))
			fmt.Println()
			if err != nil {
				return "", "", fmt.Errorf("read password: %w", err)
			}
			password = string(raw)
		} else {
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return "", "", fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
	}
	if email == "" || password == "" {
		return "", "", cli.Exit("email and password are required", 2)
	}
	return email, password, nil
}
