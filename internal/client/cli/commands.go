package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hongminglow/community-site/internal/client"
	"github.com/hongminglow/community-site/internal/models"
)

var errNotAdmin = errors.New("session is not an admin")

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	email := fs.String("email", "", "account email")
	role := fs.String("role", "user", "user or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, ok := models.ParseRole(*role)
	if !ok {
		return fmt.Errorf("unknown role %q", *role)
	}
	creds, err := a.credentials(*email)
	if err != nil {
		return err
	}

	s, msg, err := a.client.Register(ctx, creds.email, creds.password, parsed)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Signed in as %s (%s).\n", msg, s.User.Email, s.User.Role)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	creds, err := a.credentials(*email)
	if err != nil {
		return err
	}

	s, msg, err := a.client.Login(ctx, creds.email, creds.password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Signed in as %s (%s).\n", msg, s.User.Email, s.User.Role)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	msg, err := a.client.Logout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", user.Email, user.Role)
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sitectl list <kind>")
	}
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	records, err := a.client.List(ctx, kind)
	if err != nil {
		return err
	}
	return renderRecords(a.out, kind, records)
}

func (a *App) create(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: sitectl create <kind> [flags]")
	}
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	if err := a.requireAdmin(); err != nil {
		return err
	}

	fs := a.flags("create " + string(kind))
	title := fs.String("title", "", "title")
	name := fs.String("name", "", "coordinator name")
	description := fs.String("description", "", "description")
	when := fs.String("when", "", "date (2006-01-02) or date and time (2006-01-02T15:04)")
	photoPath := fs.String("photo", "", "path of the photo to upload")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	fields := map[string]string{}
	var photo *client.Photo
	switch kind {
	case models.KindAnnouncement:
		if fields["title"], err = a.orPrompt(*title, "Title"); err != nil {
			return err
		}
		if fields["timeAndDate"], err = a.orPrompt(*when, "Date (YYYY-MM-DD)"); err != nil {
			return err
		}
		fields["description"] = *description
	case models.KindCoordinator:
		if fields["name"], err = a.orPrompt(*name, "Name"); err != nil {
			return err
		}
	default:
		if fields["title"], err = a.orPrompt(*title, "Title"); err != nil {
			return err
		}
		if fields["description"], err = a.orPrompt(*description, "Description"); err != nil {
			return err
		}
	}

	if kind != models.KindAnnouncement {
		path, err := a.orPrompt(*photoPath, "Photo file")
		if err != nil {
			return err
		}
		if path != "" {
			if photo, err = readPhoto(path); err != nil {
				return err
			}
		}
	}

	rec, msg, err := a.client.Create(ctx, kind, fields, photo)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (id %s)\n", msg, rec.ID)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: sitectl delete [-yes] <kind> <id>")
	}
	kind, err := parseKind(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := a.requireAdmin(); err != nil {
		return err
	}

	id := fs.Arg(1)
	if !*yes && !confirm(a.reader, a.out, fmt.Sprintf("Delete %s %s?", kind, id)) {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	msg, err := a.client.Delete(ctx, kind, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// requireAdmin hides admin commands from signed-out and non-admin sessions.
// The server enforces the same rule.
func (a *App) requireAdmin() error {
	s, err := a.client.Current()
	if err != nil {
		return err
	}
	if !s.IsAdmin() {
		return errNotAdmin
	}
	return nil
}

type credentials struct {
	email    string
	password string
}

func (a *App) credentials(email string) (credentials, error) {
	email, err := a.orPrompt(email, "Email")
	if err != nil {
		return credentials{}, err
	}
	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return credentials{}, err
	}
	return credentials{email: email, password: password}, nil
}

// orPrompt returns value, or asks for it when empty.
func (a *App) orPrompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	v, err := prompt(a.reader, a.out, label)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return v, err
}

func parseKind(raw string) (models.Kind, error) {
	kind := models.Kind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q (want announcements, events, media or coordinators)", raw)
	}
	return kind, nil
}

func readPhoto(path string) (*client.Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	return &client.Photo{Filename: filepath.Base(path), Data: data}, nil
}
