// Package terminal is the interactive cash register: a line-oriented UI a
// cashier drives with a barcode scanner and the numeric keypad.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Kafisabah/HSP/internal/auth"
	"github.com/Kafisabah/HSP/internal/domain"
	"github.com/Kafisabah/HSP/internal/service"
)

type Terminal struct {
	svc       *service.Service
	auth      *auth.Manager
	in        *bufio.Reader
	out       io.Writer
	storeName string
}

func New(svc *service.Service, authMgr *auth.Manager, in io.Reader, out io.Writer, storeName string) *Terminal {
	return &Terminal{
		svc:       svc,
		auth:      authMgr,
		in:        bufio.NewReader(in),
		out:       out,
		storeName: storeName,
	}
}

// Run loops login sessions until the input closes or the context is done.
func (t *Terminal) Run(ctx context.Context) error {
	fmt.Fprintf(t.out, "=== %s ===\n", t.storeName)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		actor, err := t.login(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if actor == nil {
			return nil
		}

		sessionCtx := service.WithActor(ctx, *actor)
		if err := t.mainMenu(sessionCtx, *actor); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fmt.Fprintf(t.out, "%s çıkış yaptı.\n\n", actor.Username)
	}
}

func (t *Terminal) login(ctx context.Context) (*domain.Actor, error) {
	for {
		username, err := t.prompt("Kullanıcı adı (boş: çıkış)")
		if err != nil {
			return nil, err
		}
		if username == "" {
			return nil, nil
		}
		password, err := t.prompt("Şifre")
		if err != nil {
			return nil, err
		}

		actor, err := t.auth.Login(ctx, username, password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				fmt.Fprintln(t.out, "Hatalı kullanıcı adı veya şifre.")
				continue
			}
			return nil, err
		}
		fmt.Fprintf(t.out, "Hoş geldin %s (%s)\n", actor.Username, actor.Role)
		return &actor, nil
	}
}

func (t *Terminal) mainMenu(ctx context.Context, actor domain.Actor) error {
	for {
		fmt.Fprintln(t.out, "\n--- Ana Menü ---")
		fmt.Fprintln(t.out, " 1) Satış")
		fmt.Fprintln(t.out, " 2) İade")
		fmt.Fprintln(t.out, " 3) Vardiya")
		fmt.Fprintln(t.out, " 4) Müşteriler")
		if actor.Role == domain.RoleAdmin {
			fmt.Fprintln(t.out, " 5) Ürün yönetimi")
			fmt.Fprintln(t.out, " 6) Mal kabul")
			fmt.Fprintln(t.out, " 7) Raporlar")
			fmt.Fprintln(t.out, " 8) Kullanıcılar")
			fmt.Fprintln(t.out, " 9) CSV içe/dışa aktar")
		}
		fmt.Fprintln(t.out, " 0) Oturumu kapat")

		choice, err := t.prompt("Seçim")
		if err != nil {
			return err
		}
		switch choice {
		case "0":
			return nil
		case "1":
			err = t.saleFlow(ctx)
		case "2":
			err = t.returnFlow(ctx)
		case "3":
			err = t.shiftMenu(ctx)
		case "4":
			err = t.customerMenu(ctx)
		case "5":
			err = t.catalogMenu(ctx)
		case "6":
			err = t.purchaseFlow(ctx)
		case "7":
			err = t.reportsMenu(ctx)
		case "8":
			err = t.userMenu(ctx)
		case "9":
			err = t.csvMenu(ctx)
		default:
			fmt.Fprintln(t.out, "Geçersiz seçim.")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(t.out, "Hata: %v\n", err)
		}
	}
}

func (t *Terminal) prompt(label string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", label)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *Terminal) promptInt(label string, fallback int64) (int64, error) {
	raw, err := t.prompt(label)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// promptCents reads a lira amount like "12,50" or "12.50" and returns cents.
func (t *Terminal) promptCents(label string, fallback int64) (int64, error) {
	raw, err := t.prompt(label)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("negatif tutar")
	}
	return int64(value*100 + 0.5), nil
}

func (t *Terminal) confirm(label string) (bool, error) {
	raw, err := t.prompt(label + " (e/h)")
	if err != nil {
		return false, err
	}
	raw = strings.ToLower(raw)
	return raw == "e" || raw == "evet", nil
}

func lira(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d TL", sign, cents/100, cents%100)
}
