// Command authsession performs the one-time interactive login that creates
// the MTProto user session file the crawler reads on every run.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gotd/td/session"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/sirupsen/logrus"

	"github.com/Hieutrinh123/telegram-bot-news/internal/config"
)

type terminalAuth struct {
	reader *bufio.Reader
}

func (a terminalAuth) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a terminalAuth) Phone(_ context.Context) (string, error) {
	return a.prompt("Phone number (with country code, e.g. +1234567890): ")
}

func (a terminalAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompt("Verification code: ")
}

func (a terminalAuth) Password(_ context.Context) (string, error) {
	return a.prompt("2FA password: ")
}

func (a terminalAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (a terminalAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported; use an existing account")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if cfg.APIID == 0 || cfg.APIHash == "" {
		logrus.Fatal("TELEGRAM_API_ID and TELEGRAM_API_HASH must be set")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SessionPath), 0o700); err != nil {
		logrus.Fatalf("create session directory: %v", err)
	}

	client := tdclient.NewClient(cfg.APIID, cfg.APIHash, tdclient.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionPath},
	})

	flow := auth.NewFlow(terminalAuth{reader: bufio.NewReader(os.Stdin)}, auth.SendCodeOptions{})

	err = client.Run(context.Background(), func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetch self: %w", err)
		}
		fmt.Printf("Authenticated as %s %s", self.FirstName, self.LastName)
		if self.Username != "" {
			fmt.Printf(" (@%s)", self.Username)
		}
		fmt.Printf("\nSession file saved to %s\n", cfg.SessionPath)
		return nil
	})
	if err != nil {
		logrus.Fatalf("authentication failed: %v", err)
	}
}
